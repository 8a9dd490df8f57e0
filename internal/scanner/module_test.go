package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/kioskwatch/internal/config"
	"github.com/HerbHall/kioskwatch/internal/testutil"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func initModule(t *testing.T) (*Module, *testutil.MockBus) {
	t.Helper()
	bus := testutil.NewMockBus()
	m := New(newProvider(), testutil.NewClock(), nil)

	v := viper.New()
	v.Set("enabled", false)
	v.Set("scanner_id", "lane-3")
	ctx := context.Background()
	require.NoError(t, m.Init(ctx, plugin.Dependencies{Config: config.New(v), Logger: zap.NewNop(), Bus: bus}))
	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() { _ = m.Stop(ctx) })
	return m, bus
}

func TestModuleWithoutPortStartsNothing(t *testing.T) {
	m, _ := initModule(t)
	assert.Nil(t, m.source)
	assert.Equal(t, "healthy", m.Health(context.Background()).Status)
}

func TestModuleInitRequiresProvider(t *testing.T) {
	m := New(nil, testutil.NewClock(), nil)
	err := m.Init(context.Background(), plugin.Dependencies{Config: config.New(viper.New()), Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestHandleSubmit(t *testing.T) {
	m, bus := initModule(t)
	mux := http.NewServeMux()
	for _, rt := range m.Routes() {
		mux.HandleFunc(rt.Method+" /api/v1/scanner"+rt.Path, rt.Handler)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scanner/scans",
		strings.NewReader(`{"raw":"`+boardingPass+`","scanner_id":"gate-7"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.True(t, bus.WaitFor(1, time.Second))
	ev := bus.EventsFor(TopicScan)[0].Payload.(*models.ScanEvent)
	assert.Equal(t, "gate-7", ev.ScannerID)
	assert.Equal(t, models.ScanFound, ev.Result)

	for _, body := range []string{`{"raw":"AB1234"}`, `{oops`} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/scanner/scans", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestModuleHealthDegradedAfterFault(t *testing.T) {
	m, _ := initModule(t)
	p := m.Pipeline()

	p.fault(context.Background(), assert.AnError)
	assert.Equal(t, "degraded", m.Health(context.Background()).Status)

	// A successful read after the fault clears it. The fake clock does not
	// move, so step it forward first.
	p.clock.(*testutil.Clock).Advance(time.Millisecond)
	p.Submit(context.Background(), "AB1234")
	p.Wait()
	assert.Equal(t, "healthy", m.Health(context.Background()).Status)
}
