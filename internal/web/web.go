package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskcal/internal/calendar"
	"taskcal/internal/config"
	"taskcal/internal/identity"
	"taskcal/internal/ics"
	"taskcal/internal/ignore"
	appLog "taskcal/internal/log"
	"taskcal/internal/model"
)

// Engine is the calendar surface the HTTP API exposes.
type Engine interface {
	GetOccurrences(ctx context.Context, userID, start, end string, includeIgnored bool) ([]model.Occurrence, error)
	Complete(ctx context.Context, userID, kind, itemID, date string) error
	Uncomplete(ctx context.Context, userID, kind, itemID, date string) error
	Ignore(ctx context.Context, userID string, typ model.ScopeType, key string, cutoff *time.Time) (model.IgnoreScope, error)
	SetIgnoreActive(ctx context.Context, userID, hash string, active bool) error
}

// ScopeLister lists every ignore scope of a user, including inactive ones.
type ScopeLister interface {
	ListScopes(ctx context.Context, userID string) ([]model.IgnoreScope, error)
}

const maxBodyBytes = 1 << 20

// Server provides the HTTP API over the calendar engine.
type Server struct {
	cfg    *config.Config
	engine Engine
	scopes ScopeLister
	mux    *http.ServeMux
}

// NewServer constructs a new Server. scopes may be nil, in which case
// GET /api/ignores is not served.
func NewServer(cfg *config.Config, engine Engine, scopes ScopeLister) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		scopes: scopes,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
			w.Header().Set("WWW-Authenticate", `Basic realm="taskcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, engine Engine, scopes ScopeLister) error {
	s := NewServer(cfg, engine, scopes)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
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
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("/api/occurrences.ics", s.handleOccurrencesICS)
	s.mux.HandleFunc("/api/complete", s.handleCompletion(true))
	s.mux.HandleFunc("/api/uncomplete", s.handleCompletion(false))
	s.mux.HandleFunc("/api/ignores", s.handleIgnores)
	s.mux.HandleFunc("/api/ignores/toggle", s.handleIgnoreToggle)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// occurrencesResponse is the JSON response shape for /api/occurrences.
type occurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	Key           string    `json:"key"`
	ItemKind      string    `json:"item_kind"`
	ItemID        string    `json:"item_id"`
	ListID        string    `json:"list_id,omitempty"`
	Date          string    `json:"date"`
	At            time.Time `json:"at"`
	Title         string    `json:"title"`
	Rule          string    `json:"rule,omitempty"`
	Completed     bool      `json:"completed"`
	Phantom       bool      `json:"phantom"`
	Ignored       bool      `json:"ignored"`
	IgnoredScopes []string  `json:"ignored_scopes,omitempty"`
}

func toOccurrenceDTO(o model.Occurrence) occurrenceDTO {
	dto := occurrenceDTO{
		Key:       o.Key,
		ItemKind:  string(o.ItemKind),
		ItemID:    o.ItemID,
		ListID:    o.ListID,
		Date:      identity.FormatDate(o.At),
		At:        o.At,
		Title:     o.Title,
		Rule:      o.Rule,
		Completed: o.Completed,
		Phantom:   o.Phantom,
		Ignored:   o.Ignored,
	}
	for _, st := range o.IgnoredScopes {
		dto.IgnoredScopes = append(dto.IgnoredScopes, string(st))
	}
	return dto
}

// handleOccurrences returns the user's occurrences in a window.
//
// GET /api/occurrences?user=u1&start=2025-09-01&end=2025-10-31&include_ignored=1
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	occs, ok := s.queryOccurrences(w, r)
	if !ok {
		return
	}
	dtos := make([]occurrenceDTO, 0, len(occs))
	for _, o := range occs {
		dtos = append(dtos, toOccurrenceDTO(o))
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, occurrencesResponse{
		Occurrences: dtos,
		Start:       q.Get("start"),
		End:         q.Get("end"),
	})
}

// handleOccurrencesICS serves the same query as an iCalendar feed.
func (s *Server) handleOccurrencesICS(w http.ResponseWriter, r *http.Request) {
	occs, ok := s.queryOccurrences(w, r)
	if !ok {
		return
	}
	body := ics.Export(occs, ics.ExportOptions{Name: "taskcal " + r.URL.Query().Get("user")})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) queryOccurrences(w http.ResponseWriter, r *http.Request) ([]model.Occurrence, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return nil, false
	}
	q := r.URL.Query()
	user := q.Get("user")
	includeIgnored := parseBoolDefault(q.Get("include_ignored"), false)

	start := time.Now()
	occs, err := s.engine.GetOccurrences(r.Context(), user, q.Get("start"), q.Get("end"), includeIgnored)
	if err != nil {
		writeEngineError(w, "api occurrences", err)
		return nil, false
	}
	appLog.Info("api occurrences request",
		"user", user,
		"start", q.Get("start"),
		"end", q.Get("end"),
		"include_ignored", includeIgnored,
		"count", len(occs),
		"took", time.Since(start).String(),
	)
	return occs, true
}

type completionRequest struct {
	User   string `json:"user"`
	Kind   string `json:"kind"`
	ItemID string `json:"item_id"`
	Date   string `json:"date"`
}

// handleCompletion serves POST /api/complete and POST /api/uncomplete.
func (s *Server) handleCompletion(done bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var req completionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		op := s.engine.Uncomplete
		if done {
			op = s.engine.Complete
		}
		if err := op(r.Context(), req.User, req.Kind, req.ItemID, req.Date); err != nil {
			writeEngineError(w, "api completion", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type ignoreRequest struct {
	User   string `json:"user"`
	Type   string `json:"type"`
	Key    string `json:"key"`
	Cutoff string `json:"cutoff,omitempty"`
}

type toggleRequest struct {
	User   string `json:"user"`
	Hash   string `json:"hash"`
	Active bool   `json:"active"`
}

// scopeDTO is a JSON-friendly view of an ignore scope.
type scopeDTO struct {
	Hash   string `json:"hash"`
	Type   string `json:"type"`
	Key    string `json:"key"`
	Cutoff string `json:"cutoff,omitempty"`
	Active bool   `json:"active"`
}

func toScopeDTO(sc model.IgnoreScope) scopeDTO {
	dto := scopeDTO{Hash: sc.Hash, Type: string(sc.Type), Key: sc.Key, Active: sc.Active}
	if sc.Cutoff != nil {
		dto.Cutoff = identity.FormatDate(*sc.Cutoff)
	}
	return dto
}

// handleIgnores lists scopes (GET ?user=) or creates one (POST).
func (s *Server) handleIgnores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.scopes == nil {
			http.NotFound(w, r)
			return
		}
		user := r.URL.Query().Get("user")
		if user == "" {
			writeError(w, http.StatusBadRequest, "user is required")
			return
		}
		scopes, err := s.scopes.ListScopes(r.Context(), user)
		if err != nil {
			writeEngineError(w, "api ignores", err)
			return
		}
		dtos := make([]scopeDTO, 0, len(scopes))
		for _, sc := range scopes {
			dtos = append(dtos, toScopeDTO(sc))
		}
		writeJSON(w, http.StatusOK, dtos)

	case http.MethodPost:
		var req ignoreRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		var cutoff *time.Time
		if req.Cutoff != "" {
			c, err := identity.ParseDate(req.Cutoff)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid cutoff: "+err.Error())
				return
			}
			cutoff = &c
		}
		scope, err := s.engine.Ignore(r.Context(), req.User, model.ScopeType(req.Type), req.Key, cutoff)
		if err != nil {
			writeEngineError(w, "api ignore", err)
			return
		}
		writeJSON(w, http.StatusOK, toScopeDTO(scope))

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleIgnoreToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.SetIgnoreActive(r.Context(), req.User, req.Hash, req.Active); err != nil {
		writeEngineError(w, "api ignore toggle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeEngineError maps engine errors to status codes. Only unexpected
// failures are logged; their detail is not sent to the client.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidWindow), errors.Is(err, calendar.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, calendar.ErrItemNotFound), errors.Is(err, ignore.ErrScopeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		appLog.Error(op+" failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func parseBoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
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
