package sysmetrics

import (
	"context"
	"sync"

	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module runs a Sampler for the lifetime of the service.
type Module struct {
	sampler *Sampler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *zap.Logger
}

// NewModule wraps s.
func NewModule(s *Sampler) *Module {
	return &Module{sampler: s, logger: zap.NewNop()}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "metrics",
		Version:     "0.1.0",
		Description: "Host metrics sampling and health classification",
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.sampler.logger = deps.Logger
	if d := deps.Config.GetDuration("interval"); d > 0 {
		m.sampler.interval = d
	}
	m.logger.Info("metrics module initialized", zap.Duration("interval", m.sampler.interval))
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.sampler.Run(ctx)
	}()
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return nil
}

// Health is degraded while no sample is available or the last one failed.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	last, ok := m.sampler.Last()
	if err := m.sampler.Err(); err != nil {
		return plugin.HealthStatus{Status: "degraded", Message: err.Error()}
	}
	if !ok {
		return plugin.HealthStatus{Status: "degraded", Message: "no sample collected yet"}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"host": string(last.Health)},
	}
}
