// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/http/v1/dto"
	"seqstore/internal/infrastructure/http/v1/handlers"
	"seqstore/internal/infrastructure/http/v1/middleware"
	"seqstore/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation; nil disables authentication
	JWTValidator middleware.JWTValidator

	// Sequences issues values
	Sequences handlers.SequenceIssuer

	// Reader lists stored sequences
	Reader handlers.SequenceLister

	// Table is the storage mapping for requests that do not name one;
	// empty fields take the package defaults
	Table sequence.TableMapping

	// Database backs the readiness probe
	Database handlers.Database

	// Version reported by /health/info
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	dto.RegisterValidations()

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		if cfg.JWTValidator != nil {
			protected.Use(middleware.Auth(cfg.JWTValidator))
		}

		registerSequenceRoutes(protected, cfg)
	}

	return router
}

// registerSequenceRoutes registers sequence endpoints.
func registerSequenceRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewSequenceHandler(handlers.NewBaseHandler(), cfg.Sequences, cfg.Reader, cfg.Table)
	RegisterSequenceRoutes(rg.Group("/sequences"), handler, cfg.JWTValidator != nil)
}
