package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sajangpost/caption-api/internal/api/handlers"
	apimiddleware "github.com/sajangpost/caption-api/internal/api/middleware"
	"github.com/sajangpost/caption-api/internal/config"
	"github.com/sajangpost/caption-api/internal/metrics"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, cw *metrics.Client, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cw))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// API routes v1
	v1 := router.Group("/api/v1")
	if cfg.IsGatewayMode() {
		v1.Use(apimiddleware.GatewayAuth())
	} else {
		v1.Use(apimiddleware.NoAuth())
	}
	{
		captionHandler := handlers.NewCaptionHandler(cfg, db, cw)
		v1.POST("/captions/generations", captionHandler.Generate)
	}

	return router
}
