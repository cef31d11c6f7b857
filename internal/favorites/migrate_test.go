package favorites

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLog "festcal/internal/log"
	"festcal/internal/model"
)

const legacyIleAuxEsclaves = "Samedi 24 janvier 2026|09:30|Royal 1|l'île aux esclaves"

func festivalSnapshot() []model.Screening {
	return []model.Screening{
		{
			ID:        "1523",
			Day:       "2026-01-24",
			Date:      "Samedi 24 janvier 2026",
			StartTime: "09:30",
			EndTime:   "11:00",
			Venue:     "Royal 1",
			Title:     "L'Île aux esclaves",
		},
		{
			ID:        "1524",
			Day:       "2026-01-24",
			Date:      "Samedi 24 janvier 2026",
			StartTime: "14:00",
			EndTime:   "15:30",
			Venue:     "Royal 2",
			Title:     "L'ÉTÉ MEURTRIER",
		},
		{
			// No screening ID: never a migration target.
			Day:       "2026-01-25",
			Date:      "Dimanche 25 janvier 2026",
			StartTime: "10:00",
			EndTime:   "11:00",
			Venue:     "Royal 1",
			Title:     "Untitled",
		},
	}
}

func newStoreWith(t *testing.T, entries map[string]int64) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	for id, at := range entries {
		require.NoError(t, s.Put(context.Background(), id, at))
	}
	return s
}

func entryMap(t *testing.T, s Store) map[string]int64 {
	t.Helper()
	all, err := s.All(context.Background())
	require.NoError(t, err)
	out := make(map[string]int64, len(all))
	for _, e := range all {
		out[e.ID] = e.AddedAt
	}
	return out
}

func TestIsLegacyID(t *testing.T) {
	assert.True(t, IsLegacyID(legacyIleAuxEsclaves))
	assert.True(t, IsLegacyID("a|b"))
	assert.False(t, IsLegacyID("1523"))
	assert.False(t, IsLegacyID(""))
}

func TestParseLegacyKey(t *testing.T) {
	key, ok := ParseLegacyKey(legacyIleAuxEsclaves)
	require.True(t, ok)
	assert.Equal(t, LegacyKey{
		Date:      "Samedi 24 janvier 2026",
		StartTime: "09:30",
		Venue:     "Royal 1",
		Title:     "l'île aux esclaves",
	}, key)
	assert.Equal(t, legacyIleAuxEsclaves, key.String())

	for _, bad := range []string{"a|b|c", "a|b|c|d|e", "1523"} {
		_, ok := ParseLegacyKey(bad)
		assert.False(t, ok, bad)
	}

	key, ok = ParseLegacyKey("d|t|v|")
	require.True(t, ok, "empty title is still four fields")
	assert.Equal(t, "", key.Title)
}

func TestLegacyKeyFor_LowercasesTitle(t *testing.T) {
	snap := festivalSnapshot()
	assert.Equal(t, legacyIleAuxEsclaves, LegacyKeyFor(snap[0]).String())
	assert.Equal(t, "Samedi 24 janvier 2026|14:00|Royal 2|l'été meurtrier", LegacyKeyFor(snap[1]).String())
	assert.Equal(t, "d|t|v|", LegacyKeyFor(model.Screening{Date: "d", StartTime: "t", Venue: "v"}).String())
}

func TestMigrate_RewritesMatchingEntry(t *testing.T) {
	ctx := context.Background()
	store := newStoreWith(t, map[string]int64{legacyIleAuxEsclaves: 1000})

	state, n := Migrate(ctx, store, MigrationState{}, festivalSnapshot())

	assert.Equal(t, 1, n)
	assert.True(t, state.Complete)
	assert.Equal(t, map[string]int64{"1523": 1000}, entryMap(t, store))
}

func TestMigrate_OnlyNewFormatMarksComplete(t *testing.T) {
	ctx := context.Background()
	store := newStoreWith(t, map[string]int64{"1523": 5, "1524": 6})

	state, n := Migrate(ctx, store, MigrationState{}, nil)

	assert.Equal(t, 0, n)
	assert.True(t, state.Complete)
	assert.Equal(t, map[string]int64{"1523": 5, "1524": 6}, entryMap(t, store))
}

func TestMigrate_EmptyStoreMarksComplete(t *testing.T) {
	state, n := Migrate(context.Background(), NewMemoryStore(), MigrationState{}, festivalSnapshot())
	assert.Equal(t, 0, n)
	assert.True(t, state.Complete)
}

func TestMigrate_UnmatchedAndMalformedStay(t *testing.T) {
	ctx := context.Background()
	unmatched := "Samedi 24 janvier 2026|21:00|Royal 1|missing film"
	malformed := "Samedi 24 janvier 2026|09:30|Royal 1"
	noTarget := "Dimanche 25 janvier 2026|10:00|Royal 1|untitled"
	store := newStoreWith(t, map[string]int64{
		legacyIleAuxEsclaves: 1000,
		unmatched:            2000,
		malformed:            3000,
		noTarget:             4000,
		"99":                 5000,
	})

	state, n := Migrate(ctx, store, MigrationState{}, festivalSnapshot())

	assert.Equal(t, 1, n)
	assert.True(t, state.Complete)
	assert.Equal(t, map[string]int64{
		"1523":    1000,
		unmatched: 2000,
		malformed: 3000,
		noTarget:  4000,
		"99":      5000,
	}, entryMap(t, store))
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newStoreWith(t, map[string]int64{
		legacyIleAuxEsclaves: 1000,
		"Samedi 24 janvier 2026|21:00|Royal 1|missing film": 2000,
	})

	state, first := Migrate(ctx, store, MigrationState{}, festivalSnapshot())
	after := entryMap(t, store)

	state, second := Migrate(ctx, store, state, festivalSnapshot())

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.True(t, state.Complete)
	assert.Equal(t, after, entryMap(t, store))
}

func TestMigrate_CompleteStateDoesNotTouchStore(t *testing.T) {
	store := &failingStore{allErr: errors.New("must not be called")}
	state, n := Migrate(context.Background(), store, MigrationState{Complete: true}, festivalSnapshot())
	assert.Equal(t, 0, n)
	assert.True(t, state.Complete)
	assert.Zero(t, store.allCalls)
}

func TestMigrate_DefersWithoutScheduleData(t *testing.T) {
	ctx := context.Background()
	store := newStoreWith(t, map[string]int64{legacyIleAuxEsclaves: 1000})

	state, n := Migrate(ctx, store, MigrationState{}, nil)
	assert.Equal(t, 0, n)
	assert.False(t, state.Complete)

	state, n = Migrate(ctx, store, state, festivalSnapshot())
	assert.Equal(t, 1, n)
	assert.True(t, state.Complete)
}

func TestMigrate_StoreUnavailable(t *testing.T) {
	store := &failingStore{allErr: errors.New("no storage")}
	state, n := Migrate(context.Background(), store, MigrationState{}, festivalSnapshot())
	assert.Equal(t, 0, n)
	assert.False(t, state.Complete)
}

func TestMigrate_WriteFailureLeavesFlagUnset(t *testing.T) {
	ctx := context.Background()
	inner := newStoreWith(t, map[string]int64{legacyIleAuxEsclaves: 1000})
	store := &failingStore{inner: inner, putErr: errors.New("quota exceeded")}

	state, n := Migrate(ctx, store, MigrationState{}, festivalSnapshot())
	assert.Equal(t, 0, n)
	assert.False(t, state.Complete)
	assert.Equal(t, map[string]int64{legacyIleAuxEsclaves: 1000}, entryMap(t, inner))
}

func TestRunMigration_PersistsFlag(t *testing.T) {
	ctx := context.Background()
	store := newStoreWith(t, map[string]int64{legacyIleAuxEsclaves: 1000})

	n := RunMigration(ctx, store, store, festivalSnapshot())
	assert.Equal(t, 1, n)

	done, err := store.MigrationComplete(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	// A legacy entry added after completion is never picked up.
	require.NoError(t, store.Put(ctx, "Samedi 24 janvier 2026|14:00|Royal 2|l'été meurtrier", 7))
	assert.Equal(t, 0, RunMigration(ctx, store, store, festivalSnapshot()))
	assert.Contains(t, entryMap(t, store), "Samedi 24 janvier 2026|14:00|Royal 2|l'été meurtrier")
}

func TestRunMigration_FlagUnavailable(t *testing.T) {
	store := newStoreWith(t, map[string]int64{legacyIleAuxEsclaves: 1000})
	flags := &failingFlags{getErr: errors.New("no storage")}

	assert.Equal(t, 0, RunMigration(context.Background(), store, flags, festivalSnapshot()))
	assert.Contains(t, entryMap(t, store), legacyIleAuxEsclaves)
	assert.False(t, flags.set)
}

func TestMigrate_LegacyKeyCollisionIsLogged(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	appLog.SetLevel(appLog.LevelDebug)
	t.Cleanup(func() {
		appLog.SetOutput(os.Stderr)
		appLog.SetLevel(appLog.LevelInfo)
	})

	twin := model.Screening{Date: "Samedi 24 janvier 2026", StartTime: "20:00", Venue: "Royal 1", Title: "Double"}
	first, second := twin, twin
	first.ID, second.ID = "2001", "2002"

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "Samedi 24 janvier 2026|20:00|Royal 1|double", 7))

	_, n := Migrate(ctx, store, MigrationState{}, []model.Screening{first, second})
	assert.Equal(t, 1, n)

	entries, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ID: "2002", AddedAt: 7}}, entries)

	out := buf.String()
	assert.Contains(t, out, "legacy key collision")
	assert.Contains(t, out, "dropped=2001")
	assert.Contains(t, out, "kept=2002")
}

// failingStore wraps an optional inner store and injects errors.
type failingStore struct {
	inner    Store
	allErr   error
	putErr   error
	allCalls int
}

func (f *failingStore) All(ctx context.Context) ([]Entry, error) {
	f.allCalls++
	if f.allErr != nil {
		return nil, f.allErr
	}
	return f.inner.All(ctx)
}

func (f *failingStore) Put(ctx context.Context, id string, addedAt int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.inner.Put(ctx, id, addedAt)
}

func (f *failingStore) Delete(ctx context.Context, id string) error {
	return f.inner.Delete(ctx, id)
}

type failingFlags struct {
	getErr error
	set    bool
}

func (f *failingFlags) MigrationComplete(context.Context) (bool, error) {
	return false, f.getErr
}

func (f *failingFlags) SetMigrationComplete(context.Context) error {
	f.set = true
	return nil
}
