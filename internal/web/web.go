package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"festcal/internal/config"
	"festcal/internal/favorites"
	appLog "festcal/internal/log"
	"festcal/internal/schedule"
)

const layoutCacheTTL = 30 * time.Second

// Server exposes the programme, layout and favorites over HTTP.
type Server struct {
	cfg       *config.Config
	loc       *time.Location
	schedule  *schedule.Service
	favorites *favorites.Service
	flags     favorites.FlagStore
	router    chi.Router

	// Day layouts are cached per snapshot so repeated grid/API requests do
	// not recompute columns.
	layoutMu    sync.RWMutex
	layoutCache map[string]layoutCacheEntry
}

type layoutCacheEntry struct {
	snap      *schedule.Snapshot
	columns   []schedule.VenueColumn
	updatedAt time.Time
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Config    *config.Config
	Schedule  *schedule.Service
	Favorites *favorites.Service
	Flags     favorites.FlagStore
}

// NewServer constructs a Server and registers its routes.
func NewServer(d Deps) *Server {
	loc, err := d.Config.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", d.Config.Timezone)
		loc = time.Local
	}
	s := &Server{
		cfg:         d.Config,
		loc:         loc,
		schedule:    d.Schedule,
		favorites:   d.Favorites,
		flags:       d.Flags,
		layoutCache: make(map[string]layoutCacheEntry),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/days", s.handleDays)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/layout", s.handleLayout)

		r.Get("/favorites", s.handleListFavorites)
		r.Get("/favorites.ics", s.handleFavoritesICS)
		r.Post("/favorites/migrate", s.handleMigrate)
		r.Put("/favorites/{id}", s.handleAddFavorite)
		r.Delete("/favorites/{id}", s.handleRemoveFavorite)
	})

	r.Get("/day/{day}", s.handleDayGrid)
	r.Get("/preview.png", s.handlePreview)
	return r
}

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured day grid.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, PreviewPath(s.cfg))
}

// PreviewPath is where captures are written and served from.
func PreviewPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "preview.png")
}

// dayLayout returns the cached layout for day under the current snapshot.
func (s *Server) dayLayout(day string) []schedule.VenueColumn {
	snap := s.schedule.Current()
	now := time.Now()

	s.layoutMu.RLock()
	ce, ok := s.layoutCache[day]
	s.layoutMu.RUnlock()
	if ok && ce.snap == snap && now.Sub(ce.updatedAt) < layoutCacheTTL {
		return ce.columns
	}

	cols := schedule.DayLayout(snap, day)

	s.layoutMu.Lock()
	s.layoutCache[day] = layoutCacheEntry{snap: snap, columns: cols, updatedAt: now}
	s.layoutMu.Unlock()
	return cols
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestID tags every request with a v7 UUID, honoring an incoming
// X-Request-Id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the id assigned by the request-id middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
