package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	appLog "festcal/internal/log"
)

// Source produces the raw upstream programme. *Fetcher implements it.
type Source interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// Service owns the current programme snapshot. Refresh swaps it atomically;
// readers always see a complete snapshot.
type Service struct {
	src Source
	now func() time.Time

	mu      sync.RWMutex
	current *Snapshot
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Current returns the latest snapshot, or nil before the first successful
// refresh.
func (s *Service) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh fetches and parses the programme. On failure the previous
// snapshot stays in place.
func (s *Service) Refresh(ctx context.Context) error {
	res, err := s.src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh programme: %w", err)
	}
	screenings, err := Parse(res.Body)
	if err != nil {
		return fmt.Errorf("refresh programme: %w", err)
	}

	snap := &Snapshot{
		Screenings: screenings,
		FetchedAt:  s.now(),
		FromCache:  res.FromCache,
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	appLog.Info("programme refreshed",
		"screenings", len(screenings),
		"days", len(DaysOf(screenings)),
		"from_cache", res.FromCache,
	)
	return nil
}
