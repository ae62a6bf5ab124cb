package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playarena/backend/internal/api"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/database"
	"github.com/playarena/backend/internal/game"
	"github.com/playarena/backend/internal/migrations"
	"github.com/playarena/backend/internal/models"
	"github.com/playarena/backend/internal/redis"
	"github.com/playarena/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis. Match snapshots degrade to in-memory only when it
	// is unreachable.
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, match snapshots disabled: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store := models.NewStore(db)

	// Ensure the upload tree exists and register bundled models
	if err := os.MkdirAll(filepath.Join(cfg.UploadDir, "models"), 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}
	if err := models.SeedFromDir(context.Background(), store, cfg.ModelDir); err != nil {
		log.Printf("[SEED] Model seeding failed: %v", err)
	}

	// Game state: session registry and the battle orchestrator
	snapshots := game.NewSnapshotStore(rdb)
	sessions := game.NewSessionRegistry(snapshots)
	orchestrator := game.NewOrchestrator(sessions)
	go orchestrator.Run(context.Background())

	// Websocket layer registries
	lobby := ws.NewLobbyRegistry(sessions)
	channels := ws.NewChannelRegistry()
	gateway := ws.NewGateway(sessions, lobby, channels, orchestrator, store)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, store, gateway, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlayArena server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
