package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"festcal/internal/favorites"
	"festcal/internal/icsexport"
	appLog "festcal/internal/log"
	"festcal/internal/model"
	"festcal/internal/schedule"
)

type daysResponse struct {
	Days []string `json:"days"`
}

// handleDays lists festival days: the configured calendar when set,
// otherwise the days present in the programme.
func (s *Server) handleDays(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Festival.FirstDay != "" && s.cfg.Festival.Days > 0 {
		days, err := schedule.FestivalDays(s.cfg.Festival.FirstDay, s.cfg.Festival.Days)
		if err == nil {
			writeJSON(w, http.StatusOK, daysResponse{Days: days})
			return
		}
		appLog.Warn("festival calendar invalid; using programme days", "error", err.Error())
	}
	writeJSON(w, http.StatusOK, daysResponse{Days: schedule.DaysOf(s.schedule.Current().All())})
}

type scheduleResponse struct {
	Day        string            `json:"day"`
	Screenings []model.Screening `json:"screenings"`
	FetchedAt  *time.Time        `json:"fetched_at,omitempty"`
	FromCache  bool              `json:"from_cache"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}
	snap := s.schedule.Current()
	resp := scheduleResponse{Day: day, Screenings: snap.ByDay(day)}
	if snap != nil {
		fetchedAt := snap.FetchedAt
		resp.FetchedAt = &fetchedAt
		resp.FromCache = snap.FromCache
	}
	writeJSON(w, http.StatusOK, resp)
}

type layoutResponse struct {
	Day    string                 `json:"day"`
	Venues []schedule.VenueColumn `json:"venues"`
}

// handleLayout returns column placements for every venue of a day, or for a
// single venue when ?venue= is given.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day := q.Get("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return
	}

	cols := s.dayLayout(day)
	if venue := q.Get("venue"); venue != "" {
		filtered := make([]schedule.VenueColumn, 0, 1)
		for _, c := range cols {
			if c.Venue == venue {
				filtered = append(filtered, c)
			}
		}
		cols = filtered
	}
	writeJSON(w, http.StatusOK, layoutResponse{Day: day, Venues: cols})
}

type favoriteView struct {
	favorites.Entry
	Legacy    bool             `json:"legacy"`
	Screening *model.Screening `json:"screening,omitempty"`
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	entries, err := s.favorites.List(r.Context())
	if err != nil {
		appLog.Error("failed to list favorites", err)
		writeError(w, http.StatusServiceUnavailable, "favorites unavailable")
		return
	}

	snap := s.schedule.Current()
	out := make([]favoriteView, 0, len(entries))
	for _, e := range entries {
		v := favoriteView{Entry: e, Legacy: favorites.IsLegacyID(e.ID)}
		if sc, ok := snap.Find(e.ID); ok {
			v.Screening = &sc
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id := favoriteID(r)
	entry, err := s.favorites.Add(r.Context(), id)
	if err != nil {
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		appLog.Error("failed to add favorite", err, "id", id)
		writeError(w, http.StatusServiceUnavailable, "favorites unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := favoriteID(r)
	err := s.favorites.Remove(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, favorites.ErrNotFound):
		writeError(w, http.StatusNotFound, "favorite not found")
	default:
		appLog.Error("failed to remove favorite", err, "id", id)
		writeError(w, http.StatusServiceUnavailable, "favorites unavailable")
	}
}

type migrateResponse struct {
	Migrated int  `json:"migrated"`
	Complete bool `json:"complete"`
}

// handleMigrate runs the legacy identifier migration against the current
// programme. It is a no-op once the migration has completed.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n := favorites.RunMigration(ctx, s.favorites.Store(), s.flags, s.schedule.Current().All())
	done, err := s.flags.MigrationComplete(ctx)
	if err != nil {
		appLog.Warn("failed to read migration flag", "error", err.Error())
	}
	writeJSON(w, http.StatusOK, migrateResponse{Migrated: n, Complete: done})
}

// handleFavoritesICS exports favorites that resolve to a known screening.
func (s *Server) handleFavoritesICS(w http.ResponseWriter, r *http.Request) {
	entries, err := s.favorites.List(r.Context())
	if err != nil {
		appLog.Error("failed to list favorites", err)
		writeError(w, http.StatusServiceUnavailable, "favorites unavailable")
		return
	}

	snap := s.schedule.Current()
	screenings := make([]model.Screening, 0, len(entries))
	for _, e := range entries {
		if sc, ok := snap.Find(e.ID); ok {
			screenings = append(screenings, sc)
		}
	}

	body := icsexport.Favorites(screenings, icsexport.Options{
		CalendarName: s.cfg.Festival.Name,
		Location:     s.loc,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="favorites.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// favoriteID returns the decoded {id} path parameter. Legacy identifiers
// contain '|' and spaces, so clients percent-encode them. chi matches on
// RawPath when it is set, and only then is the parameter still escaped.
func favoriteID(r *http.Request) string {
	param := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return param
	}
	id, err := url.PathUnescape(param)
	if err != nil {
		return param
	}
	return id
}
