package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service wraps a Store with the single-entry operations used by the API.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the clock used to stamp new favorites.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Store() Store {
	return s.store
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return entries, nil
}

// Get returns the entry for id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Add stores id with the current time. Re-adding an existing favorite keeps
// its original timestamp.
func (s *Service) Add(ctx context.Context, id string) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("add favorite: empty id")
	}
	if e, err := s.Get(ctx, id); err == nil {
		return e, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, fmt.Errorf("add favorite: %w", err)
	}
	e := Entry{ID: id, AddedAt: s.now().UnixMilli()}
	if err := s.store.Put(ctx, e.ID, e.AddedAt); err != nil {
		return Entry{}, fmt.Errorf("add favorite: %w", err)
	}
	return e, nil
}

// Remove deletes id, returning ErrNotFound if it was not a favorite.
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// Toggle adds id if absent and removes it otherwise. It reports whether id is
// a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return false, s.Remove(ctx, id)
	case errors.Is(err, ErrNotFound):
		_, err := s.Add(ctx, id)
		return err == nil, err
	default:
		return false, err
	}
}
