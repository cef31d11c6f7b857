// Package favorites holds the per-device favorite screenings and the one-time
// migration of legacy composite-key identifiers to upstream screening IDs.
package favorites

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a favorite does not exist.
var ErrNotFound = errors.New("favorite not found")

// Entry is one stored favorite. AddedAt is opaque to this package (epoch
// milliseconds in practice) and is preserved verbatim by migration.
type Entry struct {
	ID      string `json:"id"`
	AddedAt int64  `json:"added_at"`
}

// Store is the favorites key-value store. Put overwrites an existing entry.
type Store interface {
	All(ctx context.Context) ([]Entry, error)
	Put(ctx context.Context, id string, addedAt int64) error
	Delete(ctx context.Context, id string) error
}

// FlagStore persists the migration-complete flag. The flag is only ever set,
// never cleared.
type FlagStore interface {
	MigrationComplete(ctx context.Context) (bool, error)
	SetMigrationComplete(ctx context.Context) error
}
