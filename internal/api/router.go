package api

import (
	"github.com/gin-gonic/gin"
	"github.com/granitehq/granite/internal/api/handler"
	"github.com/granitehq/granite/internal/api/middleware"
	"github.com/granitehq/granite/internal/artifact"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/pipeline"
	"github.com/granitehq/granite/internal/storage"
)

// RouterConfig holds the router-level settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	store jobstore.Store,
	orchestrator *pipeline.Orchestrator,
	artifacts *artifact.Store,
	objectStorage storage.ObjectStorage,
	cfg *RouterConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	generateHandler := handler.NewGenerateHandler(store, orchestrator, objectStorage)
	statusHandler := handler.NewStatusHandler(store)
	videoHandler := handler.NewVideoHandler(store, artifacts)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API routes
	api := r.Group("/api")
	{
		api.POST("/generate", generateHandler.Generate)
		api.GET("/status/:id", statusHandler.Status)
		api.GET("/video/:id", videoHandler.Video)
	}

	return r
}
