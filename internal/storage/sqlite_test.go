package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festcal/internal/favorites"
	"festcal/internal/model"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "festcal.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festcal.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "festcal.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "1523", 1000))
	require.NoError(t, s1.SetMigrationComplete(ctx))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	all, err := s2.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{{ID: "1523", AddedAt: 1000}}, all)

	done, err := s2.MigrationComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestSQLite_PutDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Put(ctx, "b", 2))
	require.NoError(t, s.Put(ctx, "a", 2))
	require.NoError(t, s.Put(ctx, "c", 1))
	require.NoError(t, s.Put(ctx, "c", 3)) // last write wins

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{{ID: "a", AddedAt: 2}, {ID: "b", AddedAt: 2}, {ID: "c", AddedAt: 3}}, all)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "missing"))

	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{{ID: "b", AddedAt: 2}, {ID: "c", AddedAt: 3}}, all)
}

func TestSQLite_MigrationFlagDefaultsFalse(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	done, err := s.MigrationComplete(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.SetMigrationComplete(ctx))
	require.NoError(t, s.SetMigrationComplete(ctx))

	done, err = s.MigrationComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestSQLite_RunMigration(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Put(ctx, "Samedi 24 janvier 2026|09:30|Royal 1|l'île aux esclaves", 1000))

	snapshot := []model.Screening{{
		ID:        "1523",
		Date:      "Samedi 24 janvier 2026",
		StartTime: "09:30",
		Venue:     "Royal 1",
		Title:     "L'Île aux esclaves",
	}}

	assert.Equal(t, 1, favorites.RunMigration(ctx, s, s, snapshot))
	assert.Equal(t, 0, favorites.RunMigration(ctx, s, s, snapshot))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []favorites.Entry{{ID: "1523", AddedAt: 1000}}, all)
}

func TestSQLite_ClosedStoreDegradesMigration(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.All(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, favorites.RunMigration(ctx, s, s, nil))
}
