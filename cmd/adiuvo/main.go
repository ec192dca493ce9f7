package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/app"
	"github.com/adiuvo-ai/adiuvo/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	category     = flag.String("category", "", "Document category (ingest) or answer domain filter (ask)")
	topK         = flag.Int("k", 0, "Retrieved chunks per query (overrides config)")
	chatUser     = flag.String("user", "local", "User id for chat turns")
	chatSession  = flag.String("session", "default", "Session id for chat turns")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: adiuvo [flags] <command> [args]

Commands:
  ingest <path>...   Ingest text, markdown, or HTML files into the knowledge base
  ask <question>     Ask a one-shot question against the knowledge base
  chat <message>     Run one turn of the tool-calling conversation loop
  sweep              Re-embed degraded chunks and rebuild the index now
  version            Print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV || flag.Arg(0) == "version" {
		fmt.Printf("Adiuvo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("adiuvo.toml"); err == nil {
			configFiles = append(configFiles, "adiuvo.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *topK > 0 {
		config.Chat.TopK = *topK
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "ingest":
		err = runIngest(ctx, application, flag.Args()[1:])
	case "ask":
		err = runAsk(ctx, application, flag.Args()[1:])
	case "chat":
		err = runChat(ctx, application, flag.Args()[1:])
	case "sweep":
		err = runSweep(ctx, application)
	default:
		usage()
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("Command failed")
		application.Close()
		os.Exit(1)
	}
}
