// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/gridcast/internal/adapters/http/swagger"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider
	TimelineProvider
	RosterProvider
	DocumentProvider
	SessionStore
}

// Server wires HTTP routes for the timeline API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	driversHandler  *DriversHandler
	windowsHandler  *WindowsHandler
	sessionsHandler *SessionsHandler
	windowInterval  time.Duration
	maxWindows      int
	logger          logger.Logger
}

// Default server configuration constants.
const (
	defaultWindowInterval = 5 * time.Second
	defaultMaxWindows     = 10_000
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWindowInterval sets the interval used by /windows when the request
// names none.
func WithWindowInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.windowInterval = d
		}
	}
}

// WithMaxWindows caps how many windows one /windows request may build.
func WithMaxWindows(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxWindows = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{windowInterval: defaultWindowInterval, maxWindows: defaultMaxWindows, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	s.driversHandler = NewDriversHandler(deps)
	s.windowsHandler = NewWindowsHandler(deps, deps, s.windowInterval, s.maxWindows, s.logger)
	s.sessionsHandler = NewSessionsHandler(deps)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/drivers", MetricsMiddleware(s.driversHandler.HandleGetDrivers, "drivers")).Methods(http.MethodGet)
	r.HandleFunc("/windows", MetricsMiddleware(s.windowsHandler.HandleGetWindows, "windows")).Methods(http.MethodGet)

	r.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "session")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleDelete, "session")).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/advance", MetricsMiddleware(s.sessionsHandler.HandleAdvance, "advance")).Methods(http.MethodPost)
}

// Handler returns a router with every route and the API docs registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Register(r)
	swagger.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
