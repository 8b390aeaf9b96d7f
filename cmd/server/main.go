// AgentForge - retrieval-augmented agent chat server
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/agentforge/internal/agent"
	"github.com/ashureev/agentforge/internal/api"
	"github.com/ashureev/agentforge/internal/chat"
	"github.com/ashureev/agentforge/internal/config"
	"github.com/ashureev/agentforge/internal/documents"
	"github.com/ashureev/agentforge/internal/embedding"
	"github.com/ashureev/agentforge/internal/llm"
	"github.com/ashureev/agentforge/internal/middleware"
	"github.com/ashureev/agentforge/internal/retrieval"
	"github.com/ashureev/agentforge/internal/store"
	"github.com/ashureev/agentforge/internal/tools"
	"github.com/ashureev/agentforge/internal/training"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "store", cfg.StoreDriver, "vectors", cfg.Retrieval.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	embedder, err := embedding.New(ctx, embedding.Options{
		EmbeddingConfig: cfg.Embedding,
		OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.LLM.OpenAIBaseURL,
		GeminiAPIKey:    cfg.LLM.GeminiAPIKey,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize embedding engine", "error", err)
		os.Exit(1)
	}

	index, err := openIndex(ctx, cfg, embedder)
	if err != nil {
		slog.Error("Failed to initialize vector index", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := index.Close(); closeErr != nil {
			slog.Error("Failed to close vector index", "error", closeErr)
		}
	}()

	provider, err := llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		slog.Error("Failed to initialize chat provider", "error", err)
		os.Exit(1)
	}

	agents := agent.NewRegistry()
	if cfg.AgentsFile != "" {
		n, err := agents.LoadSeeds(ctx, cfg.AgentsFile)
		if err != nil {
			slog.Error("Failed to load agent seeds", "path", cfg.AgentsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("Agent seeds loaded", "count", n)
	}
	toolRegistry := tools.Default()

	transcript, closeTranscript, err := chat.NewTranscriptLogger(chat.TranscriptConfig{
		Enabled:   cfg.Transcript.Enabled,
		Path:      cfg.Transcript.Path,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := closeTranscript(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// Initialize services.
	chatService := chat.NewService(agents, repo, index, provider, transcript, chat.Options{
		ProviderName:           cfg.LLM.Provider,
		RetrievalK:             cfg.Retrieval.K,
		Temperature:            cfg.Chat.Temperature,
		ProviderTimeout:        cfg.LLM.Timeout,
		StrictSessionOwnership: cfg.Chat.StrictSessionOwnership,
		ScopeToAgentDocuments:  cfg.Chat.ScopeToAgentDocuments,
	}, logger)
	if !chatService.ProviderConfigured() {
		slog.Warn("No chat provider configured, chat turns will return a configuration notice")
	}

	docService := documents.NewService(index, documents.NewRegistry(cfg.DocumentsFile, logger), logger)

	launcher, closeLauncher, err := newLauncher(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize training launcher", "error", err)
		os.Exit(1)
	}
	defer closeLauncher()

	trainer := training.NewManager(training.ManagerConfig{
		OutputDir:    cfg.Training.OutputDir,
		DataPath:     cfg.Transcript.Path,
		DefaultModel: cfg.Training.DefaultModel,
		StepInterval: cfg.Training.StepInterval,
	}, launcher, nil, logger)

	go func() {
		if err := trainer.Run(ctx); err != nil {
			slog.Error("Training progress watcher stopped", "error", err)
		}
	}()

	var limiter *api.RateLimiter
	if cfg.Chat.RateLimit > 0 {
		limiter = api.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateLimitWindow)
		defer limiter.Stop()
	}

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo, chatService.ProviderConfigured(), logger)
	agentHandler := api.NewAgentHandler(agents, repo, toolRegistry, logger)
	chatHandler := api.NewChatHandler(chatService, limiter, logger)
	sessionHandler := api.NewSessionHandler(repo, agents, logger)
	documentHandler := api.NewDocumentHandler(docService, logger)
	trainingHandler := api.NewTrainingHandler(trainer, cfg.Training.DefaultModel, cfg.FrontendURL, cfg.IsDevelopment(), logger)
	toolHandler := api.NewToolHandler(toolRegistry)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	healthHandler.RegisterHealth(r)
	agentHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)
	documentHandler.RegisterRoutes(r)
	trainingHandler.RegisterRoutes(r)
	toolHandler.RegisterRoutes(r)

	// Provider calls bound request time; WriteTimeout stays off for the
	// training stream.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func openStore(ctx context.Context, cfg *config.Config) (store.ConversationStore, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
	return store.NewSQLite(cfg.DBPath)
}

func openIndex(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (retrieval.Index, error) {
	if cfg.Retrieval.Driver == config.DriverPostgres {
		return retrieval.NewPGVector(ctx, cfg.DatabaseURL, embedder)
	}
	return retrieval.NewSQLite(cfg.DBPath, embedder)
}

func newLauncher(cfg *config.Config, logger *slog.Logger) (training.Launcher, func(), error) {
	if cfg.Training.Launcher == config.LauncherDocker {
		docker, err := training.NewDockerLauncher(cfg.Training.Image, logger)
		if err != nil {
			return nil, nil, err
		}
		return docker, func() { closeQuietly(docker, logger) }, nil
	}
	return &training.ProcessLauncher{Bin: cfg.Training.WorkerBin, Logger: logger}, func() {}, nil
}

func closeQuietly(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Debug("Close failed", "error", err)
	}
}
