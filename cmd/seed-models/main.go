package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/database"
	"github.com/playarena/backend/internal/models"
)

// Registers the bundled .glb files as available models without booting the
// server. Safe to run repeatedly; known ids are skipped.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	dir := cfg.ModelDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	store := models.NewStore(db)
	if err := models.SeedFromDir(context.Background(), store, dir); err != nil {
		log.Fatalf("Failed to seed models: %v", err)
	}

	log.Printf("✓ Model seeding complete (dir=%s)", dir)
}
