package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig holds configuration for the metrics server.
type ServerConfig struct {
	Port        int
	MetricsPath string
	HealthPath  string
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:        9090,
		MetricsPath: "/metrics",
		HealthPath:  "/health",
	}
}

// Check is the outcome of probing one dependency.
type Check struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthChecker reports the state of one dependency. Must be safe for
// concurrent use.
type HealthChecker func() Check

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"

	checkTimeout = 2 * time.Second
)

// PingCheck adapts a ping function (the sqlite store's Ping) into a
// HealthChecker with a bounded timeout.
func PingCheck(ping func(context.Context) error) HealthChecker {
	return func() Check {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			return Check{Status: statusUnhealthy, Message: err.Error()}
		}
		return Check{Status: statusHealthy}
	}
}

// BreakerCheck reports the upstream circuit breaker: open means the market
// data source is refusing calls and the service cannot produce fresh plans.
func BreakerCheck(open func() bool) HealthChecker {
	return func() Check {
		if open() {
			return Check{Status: statusUnhealthy, Message: "circuit breaker open"}
		}
		return Check{Status: statusHealthy}
	}
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
}

// Server serves Prometheus metrics plus the health and readiness endpoints.
type Server struct {
	cfg        ServerConfig
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewServer creates a metrics server.
func NewServer(cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/health"
	}

	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
		checkers:  make(map[string]HealthChecker),
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.Handler())
	mux.HandleFunc(cfg.HealthPath, s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
	mux.HandleFunc("/live", s.liveHandler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// RegisterHealthCheck registers a named dependency check.
func (s *Server) RegisterHealthCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// runChecks evaluates every registered dependency and reports whether all
// of them are healthy. Checks run in name order so repeated calls
// log and serialize deterministically.
func (s *Server) runChecks() (map[string]Check, bool) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checkers))
	checkers := make(map[string]HealthChecker, len(s.checkers))
	for name, c := range s.checkers {
		names = append(names, name)
		checkers[name] = c
	}
	s.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]Check, len(names))
	allHealthy := true
	for _, name := range names {
		started := time.Now()
		check := checkers[name]()
		check.LatencyMS = time.Since(started).Milliseconds()
		checks[name] = check
		if check.Status != statusHealthy {
			allHealthy = false
			s.logger.Warn("health check failed", "check", name, "message", check.Message)
		}
	}
	return checks, allHealthy
}

// Start starts the metrics server.
func (s *Server) Start() error {
	s.logger.Info("starting metrics server",
		"port", s.cfg.Port,
		"metrics_path", s.cfg.MetricsPath,
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	checks, allHealthy := s.runChecks()

	status := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
		Checks:    checks,
	}
	if !allHealthy {
		status.Status = statusUnhealthy
	}

	w.Header().Set("Content-Type", "application/json")
	if !allHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if _, allHealthy := s.runChecks(); !allHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
