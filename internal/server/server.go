// Package server exposes the contact search pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/session"
)

// Config configures the HTTP API.
type Config struct {
	// APIKeys maps each accepted Bearer key to the user it authenticates.
	APIKeys        map[string]string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

const defaultMaxBody = 64 << 10

// Server serves the HTTP API.
type Server struct {
	sessions *session.Manager
	cfg      Config
	now      func() time.Time
}

// New creates a Server backed by sessions.
func New(sessions *session.Manager, cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{sessions: sessions, cfg: cfg, now: time.Now}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer)
	r.Use(chimw.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(bearerAuth(s.cfg.APIKeys))
		r.Post("/searches", s.handleSearch)
		r.Get("/history", s.handleHistory)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Persona string `json:"persona"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.sessions.Get(UserFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	state, err := sess.Run(r.Context(), req.Persona)
	switch {
	case errors.Is(err, session.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, session.ErrAnonymous):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, resilience.ErrInput):
		writeJSON(w, http.StatusBadRequest, state)
		return
	case err != nil:
		zap.L().Warn("server: search failed", zap.String("user", sess.User()), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, state)
		return
	}

	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, state)
		return
	}
	writeExport(w, format, state.Results, s.now())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(UserFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.HistoryEntry{"history": sess.History()})
}

func writeExport(w http.ResponseWriter, f export.Format, rs model.ResultSet, now time.Time) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Filename(now)+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, f, rs); err != nil {
		zap.L().Error("server: export failed", zap.String("format", string(f)), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
