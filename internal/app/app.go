package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/common"
	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/services/answer"
	"github.com/adiuvo-ai/adiuvo/internal/services/chunker"
	"github.com/adiuvo-ai/adiuvo/internal/services/embeddings"
	"github.com/adiuvo-ai/adiuvo/internal/services/forms"
	"github.com/adiuvo-ai/adiuvo/internal/services/ingest"
	"github.com/adiuvo-ai/adiuvo/internal/services/llm"
	"github.com/adiuvo-ai/adiuvo/internal/services/pdf"
	"github.com/adiuvo-ai/adiuvo/internal/services/processing"
	"github.com/adiuvo-ai/adiuvo/internal/services/retrieval"
	"github.com/adiuvo-ai/adiuvo/internal/services/tools"
	"github.com/adiuvo-ai/adiuvo/internal/services/vectorindex"
	"github.com/adiuvo-ai/adiuvo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// LLM layer. ChatLLM answers and drives tool calls; EmbedLLM produces
	// embeddings and may be a different provider.
	ChatLLM  interfaces.LLMService
	EmbedLLM interfaces.LLMService

	Embeddings interfaces.EmbeddingService
	Index      interfaces.VectorIndex

	// Read path
	Retriever interfaces.Retriever
	Generator interfaces.AnswerGenerator

	// Conversation loop
	Registry     *tools.Registry
	Orchestrator interfaces.ToolOrchestrator

	// Write path and maintenance
	IngestService       *ingest.Service
	ProcessingService   *processing.Service
	ProcessingScheduler *processing.Scheduler

	// Form filling
	FormFillService *tools.FormFillService
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.StorageManager.Close()
		return nil, err
	}

	if cfg.Processing.Enabled {
		if err := app.ProcessingScheduler.Start(cfg.Processing.Schedule); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start reprocessing scheduler: %w", err)
		}
	}

	logger.Info().
		Str("llm_provider", string(cfg.LLM.Provider)).
		Int("index_size", app.Index.Len()).
		Bool("processing_enabled", cfg.Processing.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initStorage() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	index, err := vectorindex.Load(a.Config.Index.Path, a.Config.Index.Dimension, a.Logger)
	if err != nil {
		manager.Close()
		return fmt.Errorf("failed to load vector index: %w", err)
	}
	a.Index = index

	return nil
}

func (a *App) initServices() error {
	ctx := context.Background()

	chatLLM, embedLLM, err := llm.NewLLMService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM services: %w", err)
	}
	a.ChatLLM = chatLLM
	a.EmbedLLM = embedLLM

	a.Embeddings = embeddings.NewService(
		embedLLM,
		a.Config.LLM.EmbedDimension,
		a.Config.LLM.EmbedModel,
		a.Config.LLM.EmbedRateLimit,
		a.Logger,
	)

	documents := a.StorageManager.DocumentStorage()

	a.Retriever = retrieval.NewRetriever(a.Embeddings, a.Index, documents, a.Logger)
	a.Generator = answer.NewGenerator(chatLLM, a.Logger)

	a.IngestService = ingest.NewService(
		chunker.New(a.Config.Ingest.ChunkSize, a.Config.Ingest.MinBreakFraction),
		a.Embeddings,
		a.Index,
		documents,
		a.Config.Ingest.Concurrency,
		a.Logger,
	)

	a.ProcessingService = processing.NewService(documents, a.Embeddings, a.Index, a.Config.Processing.Limit, a.Logger)
	a.ProcessingScheduler = processing.NewScheduler(a.ProcessingService, a.Logger)

	loaded, err := forms.LoadTemplates(ctx, a.Config.Forms.TemplatesDir, a.StorageManager.FormStorage(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load form templates: %w", err)
	}
	a.Logger.Debug().Int("templates", loaded).Msg("Form templates loaded")

	a.FormFillService = tools.NewFormFillService(
		a.StorageManager.FormStorage(),
		pdf.NewFiller(a.Logger),
		a.Logger,
	)

	catalog, err := tools.LoadLinkCatalog(a.Config.Links.CatalogPath, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load link catalog: %w", err)
	}

	registry := tools.NewRegistry(a.Logger)
	register := func(def interfaces.ToolDefinition, handler tools.Handler) {
		if err == nil {
			err = registry.Register(def, handler)
		}
	}
	register(tools.NewSwitchPromptTool())
	register(tools.NewServiceLinksTool(catalog))
	register(tools.NewRetrieveAnswerTool(a.Retriever, a.Generator, a.Config.Chat.TopK))
	register(tools.NewFormFillerTool(a.FormFillService))
	if err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}
	a.Registry = registry

	a.Orchestrator = tools.NewOrchestrator(
		chatLLM,
		registry,
		a.StorageManager.ConversationStorage(),
		a.Config.Chat.MaxSteps,
		a.Logger,
	)

	return nil
}

// Close shuts down background work and releases storage.
func (a *App) Close() {
	if a.ProcessingScheduler != nil {
		a.ProcessingScheduler.Stop()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
}
