package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/models"
)

// maxUploadSize caps model uploads; GLB scenes run large.
const maxUploadSize = 50 * 1024 * 1024

var allowedMimeTypes = []string{
	"model/gltf-binary",
	"application/octet-stream",
	"model/gltf+json",
}

// UploadModel stores a 3D model binary under a fresh UUID and records its
// metadata. A file passes validation with a .glb/.gltf extension or an
// allowed MIME type.
func UploadModel(store *models.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}

		if header.Size > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("File size exceeds %d MB limit", maxUploadSize/1024/1024),
			})
			return
		}

		fileName := sanitizeFilename(header.Filename)
		if fileName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		lower := strings.ToLower(fileName)
		isGLB := strings.HasSuffix(lower, ".glb")
		isGLTF := strings.HasSuffix(lower, ".gltf")
		validMime := false
		for _, mime := range allowedMimeTypes {
			if contentType == mime {
				validMime = true
				break
			}
		}

		// A recognized extension is accepted regardless of MIME type;
		// browsers report GLB uploads inconsistently.
		if !isGLB && !isGLTF && !validMime {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid file type. Allowed: .glb/.gltf files or MIME types: %v", allowedMimeTypes),
			})
			return
		}

		extension := strings.TrimPrefix(filepath.Ext(fileName), ".")
		if extension == "" {
			extension = "bin"
		}

		modelID := uuid.New().String()
		storedPath := filepath.Join(cfg.UploadDir, "models", modelID+"."+extension)

		if err := os.MkdirAll(filepath.Dir(storedPath), 0o755); err != nil {
			log.Printf("[API] Failed to create upload directory: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
			return
		}
		if err := c.SaveUploadedFile(header, storedPath); err != nil {
			log.Printf("[API] Failed to save uploaded file %s: %v", storedPath, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
			return
		}

		model := models.Model3D{
			ID:         modelID,
			FileName:   fileName,
			FilePath:   storedPath,
			FileSize:   header.Size,
			MimeType:   contentType,
			UploadedAt: time.Now().UTC(),
		}
		if err := store.Insert(c.Request.Context(), &model); err != nil {
			log.Printf("[API] Failed to insert model %s: %v", modelID, err)
			os.Remove(storedPath)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save model metadata"})
			return
		}

		log.Printf("[API] Model uploaded: id=%s file=%s size=%d", modelID, fileName, header.Size)
		c.JSON(http.StatusOK, models.UploadModelResponse{
			ModelID:  modelID,
			FileName: fileName,
			FileSize: header.Size,
		})
	}
}

// ListModels returns the models that have not been claimed yet.
func ListModels(store *models.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.ListUnused(c.Request.Context())
		if err != nil {
			log.Printf("[API] Failed to list models: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list models"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"models": list,
			"count":  len(list),
		})
	}
}

// sanitizeFilename strips everything but alphanumerics, dots, underscores
// and hyphens, preventing path traversal through the original name.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
