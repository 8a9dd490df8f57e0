package hub

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/kioskwatch/internal/clock"
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

// Module wires the Hub to the event bus and serves the WebSocket endpoint.
type Module struct {
	state     StateSource
	metrics   MetricsSource
	clock     clock.Clock
	telemetry *telemetry.Metrics

	hub            *Hub
	bus            plugin.EventBus
	unsubscribe    func()
	pingInterval   time.Duration
	pingTimeout    time.Duration
	originPatterns []string
	logger         *zap.Logger
}

// NewModule creates the hub module. metrics and tm may be nil.
func NewModule(state StateSource, metrics MetricsSource, clk clock.Clock, tm *telemetry.Metrics) *Module {
	return &Module{
		state:     state,
		metrics:   metrics,
		clock:     clk,
		telemetry: tm,
		logger:    zap.NewNop(),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "hub",
		Version:      "0.1.0",
		Description:  "Real-time kiosk state broadcast to dashboards",
		Dependencies: []string{"kiosk"},
		Required:     true,
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	opts := Options{
		UpdateInterval: deps.Config.GetDuration("update_interval"),
		OutboxSize:     deps.Config.GetInt("outbox_size"),
		Metrics:        m.metrics,
		Telemetry:      m.telemetry,
	}
	m.hub = New(m.state, m.clock, opts, m.logger)

	m.pingInterval = deps.Config.GetDuration("ping_interval")
	if m.pingInterval <= 0 {
		m.pingInterval = 25 * time.Second
	}
	m.pingTimeout = deps.Config.GetDuration("ping_timeout")
	if m.pingTimeout <= 0 {
		m.pingTimeout = 10 * time.Second
	}
	for _, o := range strings.Split(deps.Config.GetString("allowed_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			m.originPatterns = append(m.originPatterns, o)
		}
	}

	m.logger.Info("hub module initialized",
		zap.Duration("update_interval", m.hub.interval),
		zap.Int("outbox_size", m.hub.outbox),
		zap.Duration("ping_interval", m.pingInterval),
	)
	return nil
}

// Start forwards every bus event to subscribers.
func (m *Module) Start(_ context.Context) error {
	if m.bus != nil {
		m.unsubscribe = m.bus.SubscribeAll(func(_ context.Context, e plugin.Event) {
			m.hub.Publish(e.Topic, e.Payload)
		})
	}
	m.logger.Info("hub module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.hub.Close()
	m.logger.Info("hub module stopped")
	return nil
}

// Hub returns the underlying hub. It is nil before Init.
func (m *Module) Hub() *Hub { return m.hub }

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/ws", Handler: m.handleWS},
		{Method: "GET", Path: "/subscribers", Handler: m.handleSubscribers},
	}
}

func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"subscribers": strconv.Itoa(m.hub.Count())},
	}
}
