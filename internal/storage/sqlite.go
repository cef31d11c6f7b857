// Package storage provides the SQLite-backed favorites store.
//
// Tables:
//   - favorites: screening ID (or legacy composite key) → added timestamp
//   - meta:      small key/value settings, including the migration flag
//
// Writes are last-write-wins upserts; the store assumes a single writer per
// device and takes no application-level locks.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"festcal/internal/favorites"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Index on favorites.added_at for ordered listing
const currentSchemaVersion = 1

const metaMigrationComplete = "favorites_migration_complete"

// SQLite implements favorites.Store and favorites.FlagStore.
type SQLite struct {
	db *sql.DB
}

var (
	_ favorites.Store     = (*SQLite)(nil)
	_ favorites.FlagStore = (*SQLite)(nil)
)

// Open creates or opens the database at path and applies pragmas and schema
// migrations. Safe to call repeatedly on the same file.
func Open(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("storage: database path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_favorites_added_at ON favorites(added_at)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// All returns every favorite ordered by added_at, then id.
func (s *SQLite) All(ctx context.Context) ([]favorites.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, added_at FROM favorites
		ORDER BY added_at ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]favorites.Entry, 0)
	for rows.Next() {
		var e favorites.Entry
		if err := rows.Scan(&e.ID, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("list favorites: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}

func (s *SQLite) Put(ctx context.Context, id string, addedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (id, added_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET added_at = excluded.added_at
	`, id, addedAt)
	if err != nil {
		return fmt.Errorf("put favorite: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

func (s *SQLite) MigrationComplete(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaMigrationComplete).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read migration flag: %w", err)
	}
	return value == "true", nil
}

func (s *SQLite) SetMigrationComplete(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, 'true')
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaMigrationComplete)
	if err != nil {
		return fmt.Errorf("set migration flag: %w", err)
	}
	return nil
}
