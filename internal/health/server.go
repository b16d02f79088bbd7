// Package health provides the health and metrics HTTP endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports the health of one dependency.
type Checker interface {
	Name() string
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	CheckName string
	Check     func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                     { return c.CheckName }
func (c CheckerFunc) Health(ctx context.Context) error { return c.Check(ctx) }

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	server *http.Server
	checks []Checker
}

// NewServer creates a new health server.
func NewServer(port int, checks ...Checker) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		checks: checks,
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	details := make(map[string]string, len(s.checks))
	for _, check := range s.checks {
		if err := check.Health(ctx); err != nil {
			status = "unhealthy"
			details[check.Name()] = err.Error()
		} else {
			details[check.Name()] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": details,
	})
}
