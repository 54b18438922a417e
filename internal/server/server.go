// Package server exposes replay sessions and race data over HTTP.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/session"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// Config holds the configuration for the HTTP server.
type Config struct {
	ServiceName     string
	Version         string
	Commit          string
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	MetricsPath     string // empty disables /metrics
}

// ConfigFrom maps application configuration onto server settings.
func ConfigFrom(cfg *config.Config, version string) Config {
	c := Config{
		ServiceName:     cfg.App.Name,
		Version:         version,
		Addr:            cfg.Address(),
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	}
	if cfg.Metrics.Enabled {
		c.MetricsPath = cfg.Metrics.Path
	}
	return c
}

// Server is the HTTP surface of the replay service.
type Server struct {
	cfg      Config
	sessions *session.Manager
	provider datasource.Provider
	db       DatabasePinger
	logger   *logrus.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader

	server *http.Server
	mu     sync.RWMutex
	ready  bool
}

// Option configures a Server.
type Option func(*Server)

// WithDatabase adds a database check to /ready.
func WithDatabase(db DatabasePinger) Option {
	return func(s *Server) {
		s.db = db
	}
}

// NewServer creates a new server.
func NewServer(cfg Config, sessions *session.Manager, provider datasource.Provider, log *logrus.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pitwall"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		provider: provider,
		logger:   log,
		validate: validator.New(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.cfg.MetricsPath != "" {
		mux.Handle("GET "+s.cfg.MetricsPath, metrics.Handler())
	}

	mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("POST /api/sessions/{id}/{command}", s.handleCommand)
	mux.HandleFunc("GET /api/sessions/{id}/stream", s.handleStream)

	mux.HandleFunc("GET /api/races/current", s.handleCurrentRace)
	mux.HandleFunc("GET /api/races/{id}/predictions", s.handleRacePredictions)
	mux.HandleFunc("GET /api/drivers/{id}", s.handleDriver)
	mux.HandleFunc("GET /api/drivers/{id}/performance", s.handleDriverPerformance)
	mux.HandleFunc("GET /api/drivers/{id}/explanations", s.handleDriverExplanations)
	mux.HandleFunc("GET /api/models/status", s.handleModelStatus)
	mux.HandleFunc("GET /api/telemetry/{session_id}", s.handleTelemetry)
	mux.HandleFunc("POST /api/predict", s.handlePredict)

	return s.withLogging(s.withCORS(mux))
}

// Start starts the server in the background and shuts it down when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr":    s.cfg.Addr,
			"service": s.cfg.ServiceName,
		}).Info("HTTP server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("HTTP server shutdown incomplete")
		}
	}()

	s.SetReady(true)
	return nil
}

// Shutdown gracefully shuts down the server and closes every open session.
func (s *Server) Shutdown() error {
	s.SetReady(false)
	defer s.sessions.CloseAll()

	if s.server == nil {
		return nil
	}

	s.logger.Info("HTTP server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.originAllowed(origin)
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack exposes the underlying connection for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	})
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
