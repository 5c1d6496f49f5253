// Package server implements the HTTP server for health checks and metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker interface for checking component health.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	GetStatus() map[string]string
}

// Config holds listen ports and endpoint paths. Equal ports share one
// listener.
type Config struct {
	HealthPort    int
	MetricsPort   int
	MetricsPath   string
	LivenessPath  string
	ReadinessPath string
}

func (c Config) withDefaults() Config {
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.LivenessPath == "" {
		c.LivenessPath = "/health/live"
	}
	if c.ReadinessPath == "" {
		c.ReadinessPath = "/health/ready"
	}
	return c
}

// Server represents the HTTP server for health and metrics.
type Server struct {
	servers []*http.Server
	logger  *slog.Logger

	mu    sync.Mutex
	addrs []string
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg Config,
	healthChecker HealthChecker,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	cfg = cfg.withDefaults()

	healthMux := http.NewServeMux()
	healthMux.HandleFunc(cfg.LivenessPath, LivenessHandler(healthChecker, logger))
	healthMux.HandleFunc(cfg.ReadinessPath, ReadinessHandler(healthChecker, logger))

	metricsMux := healthMux
	if cfg.MetricsPort != cfg.HealthPort {
		metricsMux = http.NewServeMux()
	}
	metricsMux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s := &Server{logger: logger}
	s.servers = append(s.servers, newHTTPServer(cfg.HealthPort, healthMux))
	if cfg.MetricsPort != cfg.HealthPort {
		s.servers = append(s.servers, newHTTPServer(cfg.MetricsPort, metricsMux))
	}
	return s
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Start binds every listener, then serves in the background. A bind
// failure is returned and nothing is left running.
func (s *Server) Start() error {
	listeners := make([]net.Listener, 0, len(s.servers))
	for _, srv := range s.servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	s.mu.Lock()
	s.addrs = s.addrs[:0]
	for _, ln := range listeners {
		s.addrs = append(s.addrs, ln.Addr().String())
	}
	s.mu.Unlock()

	for i, srv := range s.servers {
		srv, ln := srv, listeners[i]
		go func() {
			s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				s.logger.Error("HTTP server failed", "addr", ln.Addr().String(), "error", err)
			}
		}()
	}

	return nil
}

// Addrs returns the bound addresses after Start, health first.
func (s *Server) Addrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.addrs...)
}

// Shutdown gracefully shuts down all servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP servers")

	errChan := make(chan error, len(s.servers))
	for _, srv := range s.servers {
		go func(srv *http.Server) {
			errChan <- srv.Shutdown(ctx)
		}(srv)
	}

	var lastErr error
	for range s.servers {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down server", "error", err)
			lastErr = err
		}
	}

	return lastErr
}
