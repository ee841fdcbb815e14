package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"mashup-server/internal/config"
	"mashup-server/internal/domain/agent"
	"mashup-server/internal/domain/generation"
	"mashup-server/internal/domain/tool"
	"mashup-server/internal/infrastructure/database"
	"mashup-server/internal/infrastructure/llmprovider"
	"mashup-server/internal/infrastructure/logger"
	"mashup-server/internal/infrastructure/observability"
	"mashup-server/internal/infrastructure/queue"
	conversationrepo "mashup-server/internal/infrastructure/repository/conversation"
	"mashup-server/internal/infrastructure/websearch"
	"mashup-server/internal/interfaces/httpserver"
	"mashup-server/internal/interfaces/httpserver/handlers"
	"mashup-server/internal/worker"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	store := conversationrepo.NewPostgresStore(db)
	llmClient := llmprovider.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey)
	searchClient := websearch.NewClient(websearch.Config{
		BaseURL:     cfg.SearchAPIURL,
		APIKey:      cfg.SearchAPIKey,
		SearchDepth: cfg.SearchDepth,
		MaxResults:  cfg.MaxResults,
	}, log)

	orchestrator := tool.NewOrchestrator(searchClient, store, cfg.MaxConcurrentTools, cfg.ToolTimeout, log)

	taskQueue := queue.NewPostgresQueue(db, cfg.TaskMaxAttempts, log)

	conversationAgent := agent.New(agent.Config{
		Repository:    store,
		LLMProvider:   llmClient,
		Orchestrator:  orchestrator,
		Queue:         taskQueue,
		Model:         cfg.LLMModel,
		Temperature:   cfg.LLMTemperature,
		HistoryWindow: cfg.HistoryWindow,
		Logger:        log,
	})

	generationService := generation.NewService(store, llmClient, cfg.LLMModel, log)

	workerPool := worker.NewPool(
		taskQueue,
		generationService,
		worker.Config{
			WorkerCount:  cfg.WorkerCount,
			TaskTimeout:  cfg.TaskTimeout,
			PollInterval: cfg.WorkerPollInterval,
		},
		log,
	)

	workerPool.Start(ctx)
	defer func() {
		log.Info().Msg("stopping worker pool")
		workerPool.Stop()
	}()

	handlerProvider := handlers.NewProvider(conversationAgent, orchestrator, store, taskQueue, log)
	httpServer := httpserver.New(cfg, log, handlerProvider)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
