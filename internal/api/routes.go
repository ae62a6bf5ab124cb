package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playarena/backend/internal/api/handlers"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/middleware"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, store *models.Store, gateway *ws.Gateway, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	// No-cache middleware for development so clients always refetch
	// freshly uploaded models
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// Health check (also available at /api/health)
	router.GET("/health", handlers.HealthCheck)

	// Matchmaking and battle stream
	router.GET("/ws", handlers.HandleWebSocket(gateway))

	// Uploaded model binaries
	router.Static("/uploads", cfg.UploadDir)

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		modelRoutes := api.Group("/models")
		{
			modelRoutes.POST("/upload", handlers.UploadModel(store, cfg))
			modelRoutes.GET("", handlers.ListModels(store))
		}
	}
}
