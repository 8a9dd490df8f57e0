package kiosk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HerbHall/kioskwatch/internal/config"
	"github.com/HerbHall/kioskwatch/internal/testutil"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func setupModule(t *testing.T, limit float64, burst int) (*Module, *testutil.Clock, http.Handler) {
	t.Helper()
	clk := testutil.NewClock()
	reg := NewRegistry(clk, testutil.NewMockBus(), zap.NewNop())
	m := New(reg, nil)

	v := viper.New()
	v.Set("rate_limit", limit)
	v.Set("rate_burst", burst)
	if err := m.Init(context.Background(), plugin.Dependencies{
		Config: config.New(v),
		Logger: zap.NewNop(),
	}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	mux := http.NewServeMux()
	for _, rt := range m.Routes() {
		mux.HandleFunc(rt.Method+" /api/v1/kiosk"+rt.Path, rt.Handler)
	}
	return m, clk, mux
}

func postStatus(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/kiosk/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleReportThenGet(t *testing.T) {
	_, clk, h := setupModule(t, 0, 1)

	w := postStatus(h, `{"kioskId":"K1","weightStatus":"ok","scannerStatus":"fail"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kiosk/status/K1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}

	var got models.KioskStatus
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DeviceHealth[models.DeviceScale] != models.HealthOK {
		t.Errorf("scale = %q, want ok", got.DeviceHealth[models.DeviceScale])
	}
	if got.DeviceHealth[models.DeviceScanner] != models.HealthFail {
		t.Errorf("scanner = %q, want fail", got.DeviceHealth[models.DeviceScanner])
	}
	if got.Health != models.HealthFail {
		t.Errorf("health = %q, want fail", got.Health)
	}
	if !got.LastUpdated.Equal(clk.Now()) {
		t.Errorf("last_updated = %v, want %v", got.LastUpdated, clk.Now())
	}
}

func TestHandleGetUnknownKiosk(t *testing.T) {
	_, _, h := setupModule(t, 0, 1)
	postStatus(h, `{"kioskId":"K1","weightStatus":"ok"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kiosk/status/K2", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestHandleReportValidation(t *testing.T) {
	_, _, h := setupModule(t, 0, 1)

	for _, body := range []string{`{"weightStatus":"ok"}`, `{not json`} {
		if w := postStatus(h, body); w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleReportRateLimited(t *testing.T) {
	_, _, h := setupModule(t, 0.001, 2)

	for i := 0; i < 2; i++ {
		if w := postStatus(h, `{"kioskId":"K1"}`); w.Code != http.StatusCreated {
			t.Fatalf("report %d: status = %d, want 201", i, w.Code)
		}
	}
	if w := postStatus(h, `{"kioskId":"K1"}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	// Other kiosks have their own budget.
	if w := postStatus(h, `{"kioskId":"K2"}`); w.Code != http.StatusCreated {
		t.Fatalf("K2 status = %d, want 201", w.Code)
	}
}

func TestHandleListSorted(t *testing.T) {
	_, _, h := setupModule(t, 0, 1)
	for _, id := range []string{"K3", "K1", "K2"} {
		postStatus(h, `{"kioskId":"`+id+`"}`)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kiosk/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var got []models.KioskStatus
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 || got[0].ID != "K1" || got[2].ID != "K3" {
		t.Errorf("list = %+v", got)
	}
}

func TestModuleHealthCountsKiosks(t *testing.T) {
	m, _, h := setupModule(t, 0, 1)
	postStatus(h, `{"kioskId":"K1"}`)

	hs := m.Health(context.Background())
	if hs.Details["kiosks"] != "1" {
		t.Errorf("details = %v, want kiosks=1", hs.Details)
	}
}
