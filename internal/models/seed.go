package models

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SeedFromDir registers every .glb file found in dir as an available model.
// Already-registered ids are skipped, so reseeding on every boot is safe.
// A missing directory is not an error; there is simply nothing to seed.
func SeedFromDir(ctx context.Context, store *Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[SEED] No model directory at %s, skipping seed", dir)
		return nil
	}

	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".glb") {
			continue
		}

		modelID := DeriveModelID(entry.Name())

		existing, err := store.FindByID(ctx, modelID)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Printf("[SEED] %s already registered, skipping", modelID)
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			log.Printf("[SEED] Cannot stat %s: %v", path, err)
			continue
		}

		model := &Model3D{
			ID:         modelID,
			FileName:   entry.Name(),
			FilePath:   path,
			FileSize:   info.Size(),
			MimeType:   "model/gltf-binary",
			UploadedAt: time.Now().UTC(),
		}
		if err := store.Insert(ctx, model); err != nil {
			log.Printf("[SEED] Failed to register %s: %v", modelID, err)
			continue
		}

		log.Printf("[SEED] Registered model %s (%s)", modelID, path)
		seeded++
	}

	log.Printf("[SEED] %d model(s) seeded from %s", seeded, dir)
	return nil
}

// DeriveModelID maps a bundled file name to its model id:
// "Robot Kyle.glb" becomes "character_robot_kyle".
func DeriveModelID(fileName string) string {
	name := strings.TrimSuffix(fileName, ".glb")
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	return "character_" + name
}
