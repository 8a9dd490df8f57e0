package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/kioskwatch/internal/config"
	"github.com/HerbHall/kioskwatch/internal/event"
	"github.com/HerbHall/kioskwatch/internal/testutil"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startModule(t *testing.T) (*Module, *event.Bus, *httptest.Server) {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	state := staticState{"K1": {ID: "K1", Health: models.HealthFail}}
	m := NewModule(state, nil, testutil.NewClock(), nil)

	v := viper.New()
	v.Set("update_interval", time.Hour)
	v.Set("outbox_size", 8)
	ctx := context.Background()
	require.NoError(t, m.Init(ctx, plugin.Dependencies{Config: config.New(v), Logger: zap.NewNop(), Bus: bus}))
	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() { _ = m.Stop(ctx) })

	mux := http.NewServeMux()
	for _, rt := range m.Routes() {
		mux.HandleFunc(rt.Method+" /api/v1/hub"+rt.Path, rt.Handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return m, bus, srv
}

func TestWebSocketSnapshotAndBridgedEvents(t *testing.T) {
	m, bus, srv := startModule(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/hub/ws?topics=kiosk.status.updated"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var snap struct {
		Type MessageType `json:"type"`
		Data State       `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &snap))
	assert.Equal(t, TypeSnapshot, snap.Type)
	assert.Equal(t, models.HealthFail, snap.Data.Kiosks["K1"].Health)

	require.Eventually(t, func() bool { return m.Hub().Count() == 1 }, time.Second, 5*time.Millisecond)

	_ = bus.Publish(ctx, plugin.Event{Topic: "scanner.scan", Payload: "filtered out"})
	_ = bus.Publish(ctx, plugin.Event{Topic: "kiosk.status.updated", Payload: map[string]string{"kiosk_id": "K1"}})

	var ev struct {
		Type  MessageType     `json:"type"`
		Topic string          `json:"topic"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, TypeEvent, ev.Type)
	assert.Equal(t, "kiosk.status.updated", ev.Topic)
	assert.JSONEq(t, `{"kiosk_id":"K1"}`, string(ev.Data))

	// Listing subscribers over HTTP.
	resp, err := http.Get(srv.URL + "/api/v1/hub/subscribers")
	require.NoError(t, err)
	defer resp.Body.Close()
	var subs []SubscriberInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&subs))
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"kiosk.status.updated"}, subs[0].Topics)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return m.Hub().Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestModuleHealthReportsSubscribers(t *testing.T) {
	m, _, _ := startModule(t)
	hs := m.Health(context.Background())
	assert.Equal(t, "healthy", hs.Status)
	assert.Equal(t, "0", hs.Details["subscribers"])
}

func TestParseTopics(t *testing.T) {
	assert.Nil(t, parseTopics(""))
	assert.Equal(t, []string{"a", "b.*"}, parseTopics(" a, ,b.* "))
}
