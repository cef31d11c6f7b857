package favorites

import (
	"context"

	appLog "festcal/internal/log"
	"festcal/internal/model"
)

// MigrationState is the explicit migration flag. Callers own its durable
// storage; Migrate only reads it and returns the updated value.
type MigrationState struct {
	Complete bool
}

// Migrate rewrites every legacy favorite whose key matches a screening in
// snapshot to that screening's ID, keeping the original AddedAt. It returns
// the new state and the number of rewritten entries.
//
// Unmatched and malformed legacy entries are left in place, and once the
// returned state is Complete they are never retried. Storage failures are
// not surfaced: the run stops, the state stays incomplete, and the next run
// picks up whatever is left.
func Migrate(ctx context.Context, store Store, state MigrationState, snapshot []model.Screening) (MigrationState, int) {
	if state.Complete {
		return state, 0
	}

	entries, err := store.All(ctx)
	if err != nil {
		appLog.Error("favorites migration: store unavailable", err)
		return state, 0
	}

	legacy := make([]Entry, 0)
	for _, e := range entries {
		if IsLegacyID(e.ID) {
			legacy = append(legacy, e)
		}
	}
	if len(legacy) == 0 {
		return MigrationState{Complete: true}, 0
	}

	if len(snapshot) == 0 {
		// Without schedule data every entry would miss and be stranded
		// behind the flag.
		appLog.Warn("favorites migration deferred: schedule not loaded", "legacy_count", len(legacy))
		return state, 0
	}

	lookup := make(map[string]string, len(snapshot))
	for _, s := range snapshot {
		if s.ID == "" {
			continue
		}
		key := LegacyKeyFor(s).String()
		if prev, ok := lookup[key]; ok && prev != s.ID {
			appLog.Debug("favorites migration: legacy key collision", "key", key, "dropped", prev, "kept", s.ID)
		}
		lookup[key] = s.ID
	}

	migrated := 0
	for _, e := range legacy {
		key, ok := ParseLegacyKey(e.ID)
		if !ok {
			appLog.Debug("favorites migration: skipping malformed legacy id", "id", e.ID)
			continue
		}
		newID, ok := lookup[key.String()]
		if !ok {
			appLog.Debug("favorites migration: no match", "id", e.ID)
			continue
		}

		if err := store.Put(ctx, newID, e.AddedAt); err != nil {
			appLog.Error("favorites migration: write failed", err, "id", newID)
			return state, migrated
		}
		if err := store.Delete(ctx, e.ID); err != nil {
			appLog.Error("favorites migration: delete failed", err, "id", e.ID)
			return state, migrated
		}
		migrated++
	}

	appLog.Info("favorites migration complete",
		"legacy_count", len(legacy),
		"migrated", migrated,
		"unmatched", len(legacy)-migrated,
	)
	return MigrationState{Complete: true}, migrated
}

// RunMigration loads the persisted flag, runs Migrate and persists
// completion. Flag storage failures make the call a no-op returning 0.
func RunMigration(ctx context.Context, store Store, flags FlagStore, snapshot []model.Screening) int {
	done, err := flags.MigrationComplete(ctx)
	if err != nil {
		appLog.Error("favorites migration: flag unavailable", err)
		return 0
	}

	state, migrated := Migrate(ctx, store, MigrationState{Complete: done}, snapshot)
	if state.Complete && !done {
		if err := flags.SetMigrationComplete(ctx); err != nil {
			// Rewritten entries are new-format already; a rerun only
			// rescans the leftovers.
			appLog.Error("favorites migration: failed to persist flag", err)
		}
	}
	return migrated
}
