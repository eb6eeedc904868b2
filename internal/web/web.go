package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"panchcal/internal/calendar"
	"panchcal/internal/config"
	"panchcal/internal/grid"
	"panchcal/internal/ics"
	appLog "panchcal/internal/log"
	"panchcal/internal/model"
)

// Server exposes the calendar over HTTP: JSON APIs, an iCalendar feed and
// a printable HTML month page.
type Server struct {
	cfg      *config.Config
	svc      *calendar.Service
	exporter ics.Exporter
	mux      *http.ServeMux

	// Month grids keyed by (year, month). Shared with the scheduler's
	// warm-up through Warm.
	gridMu    sync.RWMutex
	grids     map[monthKey]*gridEntry
	gridClock uint64
}

type monthKey struct {
	year  int
	month time.Month
}

type gridEntry struct {
	grid     grid.Grid
	lastUsed uint64
}

// NewServer constructs a Server answering from svc.
func NewServer(cfg *config.Config, svc *calendar.Service) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg: cfg,
		svc: svc,
		exporter: ics.Exporter{
			ProductID:    cfg.ICS.ProductID,
			CalendarName: cfg.ICS.CalendarName,
			Location:     svc.Location(),
		},
		mux:   http.NewServeMux(),
		grids: make(map[monthKey]*gridEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
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
		return fmt.Errorf("web: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="panchcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/panchang", s.handlePanchang)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/rules", s.handleRules)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.Handle("GET /{$}", http.RedirectHandler("/calendar", http.StatusFound))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Warm builds and caches the grid for year/month.
func (s *Server) Warm(year int, month time.Month) error {
	_, err := s.monthGrid(year, month)
	return err
}

// Cached reports whether the grid for year/month is in the cache.
func (s *Server) Cached(year int, month time.Month) bool {
	s.gridMu.RLock()
	defer s.gridMu.RUnlock()
	_, ok := s.grids[monthKey{year, month}]
	return ok
}

// monthGrid returns the grid for year/month, building and caching it on a
// miss. The cache holds at most cfg.CacheMonths grids and evicts the least
// recently used one.
func (s *Server) monthGrid(year int, month time.Month) (grid.Grid, error) {
	key := monthKey{year, month}

	s.gridMu.RLock()
	e, ok := s.grids[key]
	s.gridMu.RUnlock()
	if ok {
		s.gridMu.Lock()
		s.gridClock++
		e.lastUsed = s.gridClock
		s.gridMu.Unlock()
		return e.grid, nil
	}

	g, err := s.svc.BuildCalendarGrid(year, month)
	if err != nil {
		return grid.Grid{}, err
	}

	s.gridMu.Lock()
	defer s.gridMu.Unlock()
	limit := max(s.cfg.CacheMonths, 1)
	for len(s.grids) >= limit {
		var oldest monthKey
		var oldestUse uint64
		first := true
		for k, v := range s.grids {
			if first || v.lastUsed < oldestUse {
				oldest, oldestUse, first = k, v.lastUsed, false
			}
		}
		delete(s.grids, oldest)
	}
	s.gridClock++
	s.grids[key] = &gridEntry{grid: g, lastUsed: s.gridClock}
	appLog.Debug("grid cached", "year", year, "month", int(month), "entries", len(s.grids))
	return g, nil
}

// monthQuery resolves ?year=&month=&offset=, defaulting to the current
// month.
func (s *Server) monthQuery(r *http.Request) (int, time.Month, error) {
	q := r.URL.Query()
	today := s.svc.Today()
	year, month := today.Year, today.Month

	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, &model.InvalidDateError{Input: v, Reason: "year is not a number"}
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, &model.InvalidDateError{Input: v, Reason: "month is not a number"}
		}
		if n < 1 || n > 12 {
			return 0, 0, &model.InvalidDateError{Input: v, Reason: "month must be 1..12"}
		}
		month = time.Month(n)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, &model.InvalidDateError{Input: v, Reason: "offset is not a number"}
		}
		year, month = grid.Shift(year, month, n)
	}
	return year, month, nil
}

// dateRangeQuery resolves ?from=&to=. ok is false when neither is given.
func (s *Server) dateRangeQuery(r *http.Request) (from, to model.Date, ok bool, err error) {
	q := r.URL.Query()
	fromS, toS := q.Get("from"), q.Get("to")
	if fromS == "" && toS == "" {
		return model.Date{}, model.Date{}, false, nil
	}
	if fromS == "" || toS == "" {
		return model.Date{}, model.Date{}, true, &model.InvalidDateError{Input: fromS + ".." + toS, Reason: "from and to must be given together"}
	}
	if from, err = s.svc.ParseDate(fromS); err != nil {
		return model.Date{}, model.Date{}, true, err
	}
	if to, err = s.svc.ParseDate(toS); err != nil {
		return model.Date{}, model.Date{}, true, err
	}
	return from, to, true, nil
}

// writeServiceError maps bad input to 400 and anything else to 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if model.IsInvalidDate(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appLog.Error("request failed", err, "path", r.URL.Path, "query", r.URL.RawQuery)
	writeError(w, http.StatusInternalServerError, "internal error")
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
