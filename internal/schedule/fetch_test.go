package schedule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_ConditionalRequests(t *testing.T) {
	var mode atomic.Int32 // 0 = serve, 1 = fail
	var conditional atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mode.Load() == 1 {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(programmeJSON))
	}))
	defer srv.Close()

	ctx := context.Background()
	f := NewFetcher(srv.URL+"/programme.json?key=secret", t.TempDir(), 5*time.Second)

	res, err := f.Fetch(ctx)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.JSONEq(t, programmeJSON, string(res.Body))

	res, err = f.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(1), conditional.Load())
	assert.JSONEq(t, programmeJSON, string(res.Body))

	mode.Store(1)
	res, err = f.Fetch(ctx)
	require.NoError(t, err, "non-OK falls back to cache")
	assert.True(t, res.FromCache)
}

func TestFetcher_NoCacheErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, t.TempDir(), time.Second)
	_, err := f.Fetch(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestFetcher_NetworkErrorUsesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(programmeJSON))
	}))

	f := NewFetcher(srv.URL, t.TempDir(), time.Second)
	_, err := f.Fetch(context.Background())
	require.NoError(t, err)

	srv.Close()
	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, res.FromCache)
}

func TestFetcher_EmptyURL(t *testing.T) {
	_, err := NewFetcher("", t.TempDir(), 0).Fetch(context.Background())
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://festival.example/...(redacted)", redactURL("https://festival.example/api/programme.json?key=abc"))
	assert.Equal(t, "upstream://...(redacted)", redactURL("not a url"))
}
