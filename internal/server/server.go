// Package server hosts the KioskWatch HTTP API: core routes, module routes
// mounted under /api/v1/{module}, and the Prometheus scrape endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/kioskwatch/internal/registry"
	"github.com/HerbHall/kioskwatch/internal/version"
	"go.uber.org/zap"
)

// Server is the main KioskWatch server.
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server. metrics may be nil to disable /metrics.
func New(addr string, reg *registry.Registry, metrics http.Handler, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
			// No WriteTimeout: WebSocket subscribers hold their connection open.
		},
		registry: reg,
		logger:   logger,
		mux:      mux,
	}

	s.registerCoreRoutes(metrics)
	s.mountModuleRoutes()

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerCoreRoutes(metrics http.Handler) {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/modules", s.handleModules)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
}

// mountModuleRoutes registers all module routes under /api/v1/{module}/.
func (s *Server) mountModuleRoutes() {
	for name, routes := range s.registry.AllRoutes() {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, name, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("module", name),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth reports overall status, version and per-module health. Any
// unhealthy module turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	modules := s.registry.Health(r.Context())

	status := "ok"
	code := http.StatusOK
	for _, h := range modules {
		switch h.Status {
		case "unhealthy":
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		case "degraded":
			if status == "ok" {
				status = "degraded"
			}
		}
	}

	w.Header().Set("X-KioskWatch-Version", version.Short())
	WriteJSON(w, code, map[string]any{
		"status":  status,
		"service": "kioskwatch",
		"version": version.Map(),
		"modules": modules,
	})
}

// handleModules returns the list of registered modules.
func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	type moduleResponse struct {
		Name        string `json:"name"`
		Version     string `json:"version"`
		Description string `json:"description"`
		Disabled    bool   `json:"disabled"`
	}
	all := s.registry.All()
	info := make([]moduleResponse, 0, len(all))
	for _, p := range all {
		pi := p.Info()
		info = append(info, moduleResponse{
			Name:        pi.Name,
			Version:     pi.Version,
			Description: pi.Description,
			Disabled:    s.registry.IsDisabled(pi.Name),
		})
	}
	w.Header().Set("X-KioskWatch-Version", version.Short())
	WriteJSON(w, http.StatusOK, info)
}
