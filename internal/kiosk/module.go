package kiosk

import (
	"context"
	"errors"
	"strconv"

	"github.com/HerbHall/kioskwatch/internal/telemetry"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module exposes the registry over HTTP.
type Module struct {
	registry *Registry
	metrics  *telemetry.Metrics
	limiter  *reportLimiter
	logger   *zap.Logger
}

// New creates the kiosk module around an existing registry.
func New(reg *Registry, metrics *telemetry.Metrics) *Module {
	return &Module{
		registry: reg,
		metrics:  metrics,
		limiter:  newReportLimiter(0, 1),
		logger:   zap.NewNop(),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "kiosk",
		Version:     "0.1.0",
		Description: "Kiosk status ingestion and registry queries",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.registry == nil {
		return errors.New("kiosk module: registry is nil")
	}

	limit := deps.Config.GetFloat64("rate_limit")
	burst := deps.Config.GetInt("rate_burst")
	m.limiter = newReportLimiter(limit, burst)

	m.logger.Info("kiosk module initialized",
		zap.Float64("rate_limit", limit),
		zap.Int("rate_burst", burst),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("kiosk module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("kiosk module stopped")
	return nil
}

// Health reports the number of known kiosks.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"kiosks": strconv.Itoa(m.registry.Len())},
	}
}
