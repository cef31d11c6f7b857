package favorites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestService_AddKeepsOriginalTimestamp(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore()).WithClock(fixedClock(1000))

	e, err := svc.Add(ctx, "1523")
	require.NoError(t, err)
	assert.Equal(t, Entry{ID: "1523", AddedAt: 1000}, e)

	svc.WithClock(fixedClock(2000))
	e, err = svc.Add(ctx, "1523")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), e.AddedAt)

	_, err = svc.Add(ctx, "")
	assert.Error(t, err)
}

func TestService_RemoveAndToggle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore()).WithClock(fixedClock(1000))

	assert.ErrorIs(t, svc.Remove(ctx, "1523"), ErrNotFound)

	on, err := svc.Toggle(ctx, "1523")
	require.NoError(t, err)
	assert.True(t, on)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ID: "1523", AddedAt: 1000}}, list)

	on, err = svc.Toggle(ctx, "1523")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = svc.Get(ctx, "1523")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AllIsOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "b", 2))
	require.NoError(t, s.Put(ctx, "c", 1))
	require.NoError(t, s.Put(ctx, "a", 2))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"c", 1}, {"a", 2}, {"b", 2}}, all)
}

func TestService_AddReturnsReadFailure(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	svc := NewService(&failingStore{inner: inner, allErr: errors.New("disk gone")})

	_, err := svc.Add(ctx, "1523")
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk gone")

	entries, err := inner.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "no write after a failed read")
}
