package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Index       IndexConfig      `toml:"index"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Ingest      IngestConfig     `toml:"ingest"`
	Processing  ProcessingConfig `toml:"processing"`
	Chat        ChatConfig       `toml:"chat"`
	Forms       FormsConfig      `toml:"forms"`
	Links       LinksConfig      `toml:"links"`
	Logging     LoggingConfig    `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// IndexConfig configures the persisted vector index artifact.
type IndexConfig struct {
	Path      string `toml:"path"`      // Index file path; absent file means "create empty"
	Dimension int    `toml:"dimension"` // Embedding dimensionality, must match llm.embed_dimension
}

// LLMProvider identifies which chat completion provider to use
type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

type LLMConfig struct {
	Provider       LLMProvider `toml:"provider"`        // "claude" (default) or "gemini"
	EmbedModel     string      `toml:"embed_model"`     // Embedding model name
	EmbedDimension int         `toml:"embed_dimension"` // Output dimensionality for embeddings
	EmbedRateLimit float64     `toml:"embed_rate_limit"` // Outbound embedding calls per second
	Timeout        string      `toml:"timeout"`          // Per-call timeout, e.g. "2m"
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey    string `toml:"api_key"`
	ChatModel string `toml:"chat_model"`
	Timeout   string `toml:"timeout"`
}

// IngestConfig controls document chunking and ingestion concurrency.
type IngestConfig struct {
	ChunkSize        int     `toml:"chunk_size"`         // Target chunk size in characters
	MinBreakFraction float64 `toml:"min_break_fraction"` // Accept a break only past this fraction of the window
	Concurrency      int     `toml:"concurrency"`        // Max in-flight embedding calls per batch
}

// ProcessingConfig controls the degraded-embedding reprocessing sweep.
type ProcessingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format (with seconds)
	Limit    int    `toml:"limit"`    // Max chunks to re-embed per run
}

// ChatConfig controls the RAG and tool-loop behavior.
type ChatConfig struct {
	TopK     int `toml:"top_k"`     // Retrieved chunks per query
	MaxSteps int `toml:"max_steps"` // Tool-call round trips per turn before forced termination
}

// FormsConfig contains configuration for form template loading.
type FormsConfig struct {
	TemplatesDir string `toml:"templates_dir"` // Directory containing form template YAML files
}

// LinksConfig contains configuration for the service link catalog.
type LinksConfig struct {
	CatalogPath string `toml:"catalog_path"` // YAML file mapping state/service to official URLs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig returns a Config populated with defaults. File, env, and
// CLI layers override these in that order.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/adiuvo",
			},
		},
		Index: IndexConfig{
			Path:      "./data/index.bin",
			Dimension: 768,
		},
		LLM: LLMConfig{
			Provider:       LLMProviderClaude,
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			EmbedRateLimit: 5,
			Timeout:        "2m",
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Temperature: 0.7,
			Timeout:     "2m",
		},
		Gemini: GeminiConfig{
			ChatModel: "gemini-2.0-flash",
			Timeout:   "2m",
		},
		Ingest: IngestConfig{
			ChunkSize:        5000,
			MinBreakFraction: 0.3,
			Concurrency:      5,
		},
		Processing: ProcessingConfig{
			Enabled:  true,
			Schedule: "0 0 */6 * * *", // Every 6 hours
			Limit:    200,
		},
		Chat: ChatConfig{
			TopK:     5,
			MaxSteps: 6,
		},
		Forms: FormsConfig{
			TemplatesDir: "./forms",
		},
		Links: LinksConfig{
			CatalogPath: "./links.yaml",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-section invariants that would otherwise surface as
// runtime storage errors.
func (c *Config) Validate() error {
	if c.Index.Dimension != c.LLM.EmbedDimension {
		return fmt.Errorf("index.dimension (%d) must match llm.embed_dimension (%d): stored and query vectors would disagree", c.Index.Dimension, c.LLM.EmbedDimension)
	}
	if c.Ingest.MinBreakFraction < 0 || c.Ingest.MinBreakFraction >= 1 {
		return fmt.Errorf("ingest.min_break_fraction must be in [0, 1): got %v", c.Ingest.MinBreakFraction)
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive: got %d", c.Ingest.ChunkSize)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ADIUVO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if badgerPath := os.Getenv("ADIUVO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if indexPath := os.Getenv("ADIUVO_INDEX_PATH"); indexPath != "" {
		config.Index.Path = indexPath
	}

	if provider := os.Getenv("ADIUVO_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}

	if level := os.Getenv("ADIUVO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ADIUVO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if dim := os.Getenv("ADIUVO_EMBED_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.LLM.EmbedDimension = d
			config.Index.Dimension = d
		}
	}
}
