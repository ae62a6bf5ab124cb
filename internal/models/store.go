package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store provides access to the models table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Insert registers a new uploaded model.
func (s *Store) Insert(ctx context.Context, m *Model3D) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO models (id, file_name, file_path, file_size, mime_type, uploaded_at, is_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.FileName, m.FilePath, m.FileSize, m.MimeType, m.UploadedAt, m.IsUsed)
	if err != nil {
		return fmt.Errorf("insert model %s: %w", m.ID, err)
	}
	return nil
}

// FindByID returns the model with the given id, or (nil, nil) when absent.
func (s *Store) FindByID(ctx context.Context, id string) (*Model3D, error) {
	var m Model3D
	err := s.db.GetContext(ctx, &m, `
		SELECT id, file_name, file_path, file_size, mime_type, uploaded_at, is_used
		FROM models
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find model %s: %w", id, err)
	}
	return &m, nil
}

// MarkUsed flips is_used for an unused model. The conditional UPDATE is the
// serialization point for concurrent claims: only one caller observes true.
func (s *Store) MarkUsed(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE models SET is_used = TRUE
		WHERE id = $1 AND is_used = FALSE
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark model %s used: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark model %s used: %w", id, err)
	}
	return n > 0, nil
}

// ListUnused returns all models not yet claimed by a player.
func (s *Store) ListUnused(ctx context.Context) ([]Model3D, error) {
	list := []Model3D{}
	err := s.db.SelectContext(ctx, &list, `
		SELECT id, file_name, file_path, file_size, mime_type, uploaded_at, is_used
		FROM models
		WHERE is_used = FALSE
		ORDER BY uploaded_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list unused models: %w", err)
	}
	return list, nil
}
