package mqttingest

import (
	"context"
	"testing"

	"github.com/HerbHall/kioskwatch/internal/config"
	"github.com/HerbHall/kioskwatch/internal/kiosk"
	"github.com/HerbHall/kioskwatch/internal/testutil"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newModule(t *testing.T, settings map[string]any) (*Module, *kiosk.Registry) {
	t.Helper()
	reg := kiosk.NewRegistry(testutil.NewClock(), nil, zap.NewNop())
	m := New(reg, nil)

	v := viper.New()
	v.Set("topic", "kiosks/+/status")
	v.Set("broker", "tcp://localhost:1883")
	v.Set("qos", 1)
	for k, val := range settings {
		v.Set(k, val)
	}
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Config: config.New(v), Logger: zap.NewNop()}))
	return m, reg
}

func TestHandleMessageUsesTopicKioskID(t *testing.T) {
	m, reg := newModule(t, nil)

	m.handleMessage(nil, &fakeMessage{
		topic:   "kiosks/K5/status",
		payload: []byte(`{"scannerStatus":"ok","cameraStatus":"fail"}`),
	})

	got, ok := reg.Get("K5")
	require.True(t, ok)
	assert.Equal(t, models.HealthFail, got.Health)
	assert.Equal(t, models.HealthOK, got.DeviceHealth[models.DeviceScanner])
}

func TestHandleMessageBodyIDWins(t *testing.T) {
	m, reg := newModule(t, nil)

	m.handleMessage(nil, &fakeMessage{topic: "kiosks/K5/status", payload: []byte(`{"kioskId":"K6"}`)})

	_, ok := reg.Get("K6")
	assert.True(t, ok)
	_, ok = reg.Get("K5")
	assert.False(t, ok)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	m, reg := newModule(t, nil)

	m.handleMessage(nil, &fakeMessage{topic: "kiosks/K5/status", payload: []byte(`not json`)})

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, int64(1), m.rejected.Load())
	assert.Equal(t, int64(1), m.received.Load())
}

func TestTopicKioskID(t *testing.T) {
	tests := []struct {
		filter, topic, want string
	}{
		{"kiosks/+/status", "kiosks/K1/status", "K1"},
		{"site/+/kiosks/+/status", "site/LHR/kiosks/K1/status", "LHR"},
		{"kiosks/status", "kiosks/status", ""},
		{"kiosks/#", "kiosks/K1/status", ""},
	}
	for _, tt := range tests {
		if got := topicKioskID(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicKioskID(%q, %q) = %q, want %q", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestInitValidation(t *testing.T) {
	m := New(nil, nil)
	v := viper.New()
	v.Set("enabled", true)
	v.Set("topic", "")
	err := m.Init(context.Background(), plugin.Dependencies{Config: config.New(v), Logger: zap.NewNop()})
	assert.Error(t, err)

	v = viper.New()
	v.Set("qos", 3)
	err = m.Init(context.Background(), plugin.Dependencies{Config: config.New(v), Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestDisabledModuleIsHealthyAndInert(t *testing.T) {
	m, _ := newModule(t, map[string]any{"enabled": false})
	require.NoError(t, m.Start(context.Background()))
	assert.Nil(t, m.client)
	assert.Equal(t, "healthy", m.Health(context.Background()).Status)
	require.NoError(t, m.Stop(context.Background()))
}
