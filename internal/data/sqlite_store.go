package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devricklin/weekcheck/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// sqliteStore keeps snapshots as rows of a single table
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the snapshot database
func NewSQLiteStore(dbPath string) (repo.SnapshotStore, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Load decodes the stored payload
func (s *sqliteStore) Load(ctx context.Context, name string, v any) (bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE name = ?`, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return true, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return true, nil
}

// Save replaces the stored payload
func (s *sqliteStore) Save(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (name, payload, updated_at)
		VALUES (?, ?, ?)
	`, name, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}
	return nil
}

// Close closes the database
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
