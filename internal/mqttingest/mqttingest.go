// Package mqttingest accepts kiosk status reports published to an MQTT
// broker and applies them to the kiosk registry.
package mqttingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/kioskwatch/internal/kiosk"
	"github.com/HerbHall/kioskwatch/internal/telemetry"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// StatusSink receives normalized reports.
type StatusSink interface {
	Upsert(ctx context.Context, report models.StatusReport) models.KioskStatus
}

// Config is the mqtt module configuration.
type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	Topic          string        `mapstructure:"topic"`
	ClientID       string        `mapstructure:"client_id"`
	QoS            byte          `mapstructure:"qos"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
}

// Module subscribes to kiosk status topics.
type Module struct {
	sink    StatusSink
	metrics *telemetry.Metrics
	cfg     Config
	client  mqtt.Client
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger

	received atomic.Int64
	rejected atomic.Int64
}

// New creates the mqtt module. metrics may be nil.
func New(sink StatusSink, metrics *telemetry.Metrics) *Module {
	return &Module{
		sink:    sink,
		metrics: metrics,
		ctx:     context.Background(),
		logger:  zap.NewNop(),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "mqtt",
		Version:      "0.1.0",
		Description:  "Kiosk status ingestion over MQTT",
		Dependencies: []string{"kiosk"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if err := deps.Config.Unmarshal(&m.cfg); err != nil {
		return err
	}
	if m.cfg.QoS > 2 {
		return errors.New("mqtt: qos must be 0, 1 or 2")
	}
	if m.cfg.Enabled && (m.cfg.Broker == "" || m.cfg.Topic == "") {
		return errors.New("mqtt: broker and topic are required when enabled")
	}
	m.logger.Info("mqtt module initialized",
		zap.Bool("enabled", m.cfg.Enabled),
		zap.String("broker", m.cfg.Broker),
		zap.String("topic", m.cfg.Topic),
	)
	return nil
}

// Start connects to the broker in the background. The paho client keeps
// retrying, so an unreachable broker does not block startup.
func (m *Module) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))

	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(m.cfg.ClientID).
		SetUsername(m.cfg.Username).
		SetPassword(m.cfg.Password).
		SetKeepAlive(m.cfg.KeepAlive).
		SetConnectTimeout(m.cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			m.logger.Warn("mqtt connection lost, reconnecting", zap.Error(err))
		})

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if token.WaitTimeout(m.cfg.ConnectTimeout) && token.Error() != nil {
		m.logger.Warn("mqtt connect failed, will retry", zap.Error(token.Error()))
	}
	m.logger.Info("mqtt module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.client == nil {
		return nil
	}
	if m.client.IsConnected() {
		if token := m.client.Unsubscribe(m.cfg.Topic); token.WaitTimeout(2*time.Second) && token.Error() != nil {
			m.logger.Warn("mqtt unsubscribe failed", zap.Error(token.Error()))
		}
	}
	m.client.Disconnect(250)
	m.cancel()
	m.logger.Info("mqtt module stopped")
	return nil
}

// Health reports broker connectivity.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	if !m.cfg.Enabled {
		return plugin.HealthStatus{Status: "healthy", Message: "mqtt ingestion disabled"}
	}
	if m.client == nil || !m.client.IsConnectionOpen() {
		return plugin.HealthStatus{Status: "degraded", Message: "not connected to " + m.cfg.Broker}
	}
	return plugin.HealthStatus{Status: "healthy"}
}

func (m *Module) onConnect(c mqtt.Client) {
	m.logger.Info("mqtt connected", zap.String("broker", m.cfg.Broker))
	if token := c.Subscribe(m.cfg.Topic, m.cfg.QoS, m.handleMessage); token.Wait() && token.Error() != nil {
		m.logger.Error("mqtt subscribe failed", zap.String("topic", m.cfg.Topic), zap.Error(token.Error()))
	}
}

// handleMessage runs on the paho callback goroutine. Malformed payloads are
// logged and counted; they never reach the registry.
func (m *Module) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	m.received.Add(1)
	fallback := topicKioskID(m.cfg.Topic, msg.Topic())

	report, err := kiosk.ParseReportWithID(msg.Payload(), fallback)
	if err != nil {
		m.rejected.Add(1)
		m.metrics.StatusReport("mqtt", "invalid")
		m.logger.Warn("invalid status message",
			zap.String("topic", msg.Topic()),
			zap.Error(err),
		)
		return
	}

	status := m.sink.Upsert(m.ctx, report)
	m.metrics.StatusReport("mqtt", "accepted")
	m.logger.Debug("status message accepted",
		zap.String("kiosk_id", string(status.ID)),
		zap.String("health", string(status.Health)),
	)
}

// topicKioskID returns the segment of topic matched by the first "+"
// wildcard in filter, e.g. "K1" for filter "kiosks/+/status" and topic
// "kiosks/K1/status".
func topicKioskID(filter, topic string) string {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "+" && i < len(ts) {
			return ts[i]
		}
	}
	return ""
}
