package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/granitehq/granite/internal/api"
	"github.com/granitehq/granite/internal/api/middleware"
	"github.com/granitehq/granite/internal/artifact"
	"github.com/granitehq/granite/internal/config"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
	"github.com/granitehq/granite/internal/pipeline"
	"github.com/granitehq/granite/internal/repository"
	"github.com/granitehq/granite/internal/service"
	"github.com/granitehq/granite/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()
	appLog := logger.GetDefault()

	// Initialize the job store
	var store jobstore.Store
	if cfg.Database.Driver == "memory" {
		store = jobstore.NewMemoryStore()
		appLog.Warn("Using in-memory job store, jobs will not survive restarts")
	} else {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to initialize database")
		}
		store = repository.NewJobRepository(db)
	}

	// Initialize object storage (local filesystem, MinIO, R2, or S3)
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
		LocalPath: cfg.Storage.LocalPath,
	})
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx := context.Background()
	if s3Storage, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			appLog.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	artifacts := artifact.NewStore(objectStorage)

	// Initialize generation service clients
	llmService := service.NewLLMService(&service.LLMConfig{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})
	speechService := service.NewSpeechService(&service.SpeechConfig{
		Model:   cfg.Speech.Model,
		Voice:   cfg.Speech.Voice,
		APIKey:  cfg.Speech.APIKey,
		BaseURL: cfg.Speech.BaseURL,
	})
	renderService := service.NewRenderService(&service.RenderConfig{
		BaseURL: cfg.Renderer.BaseURL,
		Timeout: cfg.Renderer.Timeout,
	})

	// Bind stage handlers to the fixed pipeline order
	definition, err := pipeline.NewDefinition(pipeline.DefaultHandlers(
		llmService, speechService, renderService, objectStorage,
	))
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build pipeline definition")
	}

	orchestrator := pipeline.NewOrchestrator(store, artifacts, definition, appLog, &pipeline.OrchestratorConfig{
		Workers:      cfg.Pipeline.Workers,
		QueueSize:    cfg.Pipeline.QueueSize,
		StageTimeout: cfg.Pipeline.StageTimeout,
	})
	orchestrator.Start()

	// Reconcile jobs left over from a previous run
	if err := orchestrator.Recover(ctx); err != nil {
		appLog.WithError(err).Error("Failed to recover persisted jobs")
	}

	// Retention sweeper for terminal jobs
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if cfg.Pipeline.Retention.Enabled {
		sweeper := pipeline.NewSweeper(store, artifacts, appLog,
			cfg.Pipeline.Retention.MaxAge, cfg.Pipeline.Retention.SweepInterval)
		go sweeper.Run(sweepCtx)
	}

	// Setup router
	router := api.SetupRouter(store, orchestrator, artifacts, objectStorage, &api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLog.WithField("port", cfg.Server.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Server forced to shutdown")
	}
	stopSweeper()
	if err := orchestrator.Stop(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("Orchestrator stopped before in-flight jobs finished")
	}

	appLog.Info("Server exited")
}
