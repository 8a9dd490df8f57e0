package scanner

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/HerbHall/kioskwatch/internal/clock"
	"github.com/HerbHall/kioskwatch/internal/lookup"
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

// Module reads the configured serial scanner and accepts scans over HTTP.
type Module struct {
	provider lookup.Provider
	clock    clock.Clock
	metrics  *telemetry.Metrics

	pipeline *Pipeline
	enabled  bool
	port     string
	baud     int
	source   *SerialSource
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates the scanner module. metrics may be nil.
func New(provider lookup.Provider, clk clock.Clock, metrics *telemetry.Metrics) *Module {
	return &Module{
		provider: provider,
		clock:    clk,
		metrics:  metrics,
		logger:   zap.NewNop(),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "scanner",
		Version:     "0.1.0",
		Description: "Ticket scan resolution from serial scanners",
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.provider == nil {
		return errors.New("scanner module: record provider is nil")
	}

	cfg := deps.Config
	m.enabled = cfg.GetBool("enabled")
	m.port = cfg.GetString("port")
	m.baud = cfg.GetInt("baud")
	if m.baud <= 0 {
		m.baud = 9600
	}

	m.pipeline = NewPipeline(m.provider, deps.Bus, m.clock, Options{
		ScannerID:     cfg.GetString("scanner_id"),
		Port:          m.port,
		LookupTimeout: cfg.GetDuration("lookup_timeout"),
		FaultBackoff:  cfg.GetDuration("fault_backoff"),
	}, m.metrics, m.logger)

	m.logger.Info("scanner module initialized",
		zap.Bool("serial_enabled", m.enabled),
		zap.String("port", m.port),
		zap.Int("baud", m.baud),
	)
	return nil
}

// Start begins reading the serial port when one is configured.
func (m *Module) Start(ctx context.Context) error {
	if !m.enabled || m.port == "" {
		m.logger.Info("no serial scanner configured; HTTP submissions only")
		return nil
	}

	m.source = NewSerialSource(m.port, m.baud)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.pipeline.Run(runCtx, m.source); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("scan pipeline stopped", zap.Error(err))
		}
	}()
	m.logger.Info("scanner module started", zap.String("port", m.port))
	return nil
}

// Stop ends the read loop and drains in-flight lookups.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.source != nil {
		if err := m.source.Close(); err != nil {
			m.logger.Debug("closing serial port", zap.Error(err))
		}
	}
	m.wg.Wait()
	if m.pipeline != nil {
		m.pipeline.Wait()
	}
	m.logger.Info("scanner module stopped")
	return nil
}

// Pipeline returns the scan pipeline. It is nil before Init.
func (m *Module) Pipeline() *Pipeline { return m.pipeline }

// Health is degraded when the latest read attempt failed.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	faults, last := m.pipeline.Faults()
	details := map[string]string{
		"in_flight": strconv.Itoa(m.pipeline.InFlight()),
		"faults":    strconv.FormatInt(faults, 10),
	}
	if last != nil && last.At.After(m.pipeline.LastScan()) {
		return plugin.HealthStatus{Status: "degraded", Message: last.Error, Details: details}
	}
	return plugin.HealthStatus{Status: "healthy", Details: details}
}
