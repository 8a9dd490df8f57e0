package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"go.uber.org/zap"
)

// testModule is a minimal module for testing.
type testModule struct {
	info    plugin.PluginInfo
	initErr error
	started bool
	stopped bool
	health  *plugin.HealthStatus
}

func newTestModule(name string, deps ...string) *testModule {
	return &testModule{
		info: plugin.PluginInfo{
			Name:         name,
			Version:      "1.0.0",
			Description:  "test module " + name,
			Dependencies: deps,
			APIVersion:   plugin.APIVersionCurrent,
		},
	}
}

func (m *testModule) Info() plugin.PluginInfo                             { return m.info }
func (m *testModule) Init(_ context.Context, _ plugin.Dependencies) error { return m.initErr }
func (m *testModule) Start(_ context.Context) error                       { m.started = true; return nil }
func (m *testModule) Stop(_ context.Context) error                        { m.stopped = true; return nil }

// testHTTPModule implements both Plugin and HTTPProvider.
type testHTTPModule struct {
	testModule
	routes []plugin.Route
}

func (m *testHTTPModule) Routes() []plugin.Route { return m.routes }

type testHealthModule struct {
	testModule
}

func (m *testHealthModule) Health(_ context.Context) plugin.HealthStatus {
	return plugin.HealthStatus{Status: "degraded", Message: "scanner port closed"}
}

func testDeps() func(string) plugin.Dependencies {
	return func(name string) plugin.Dependencies {
		return plugin.Dependencies{Logger: zap.NewNop().Named(name)}
	}
}

func TestRegister(t *testing.T) {
	reg := New(zap.NewNop())

	m := newTestModule("kiosk")
	if err := reg.Register(m); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(m); err == nil {
		t.Fatal("Register() expected error for duplicate, got nil")
	}
}

func TestRegisterEmptyName(t *testing.T) {
	reg := New(zap.NewNop())
	if err := reg.Register(&testModule{}); err == nil {
		t.Fatal("Register() expected error for empty name, got nil")
	}
}

func TestValidateOrdersDependenciesFirst(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(newTestModule("scanner", "hub"))
	_ = reg.Register(newTestModule("hub"))

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d modules, want 2", len(all))
	}
	if all[0].Info().Name != "hub" || all[1].Info().Name != "scanner" {
		t.Errorf("order = [%s %s], want [hub scanner]", all[0].Info().Name, all[1].Info().Name)
	}
}

func TestValidateCycleDetection(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(newTestModule("a", "b"))
	_ = reg.Register(newTestModule("b", "a"))

	if err := reg.Validate(); err == nil {
		t.Fatal("Validate() expected cycle error, got nil")
	}
}

func TestValidateMissingRequiredDep(t *testing.T) {
	reg := New(zap.NewNop())
	m := newTestModule("mqtt", "missing")
	m.info.Required = true
	_ = reg.Register(m)

	if err := reg.Validate(); err == nil {
		t.Fatal("Validate() expected error for missing required dep, got nil")
	}
}

func TestValidateDisablesOptionalWithMissingDep(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(newTestModule("mqtt", "missing"))

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !reg.IsDisabled("mqtt") {
		t.Error("expected module 'mqtt' to be disabled")
	}
}

func TestAPIVersionOutOfRange(t *testing.T) {
	for _, v := range []int{0, 999} {
		reg := New(zap.NewNop())
		m := newTestModule("hub")
		m.info.APIVersion = v
		m.info.Required = true
		_ = reg.Register(m)

		if err := reg.Validate(); err == nil {
			t.Errorf("Validate() with API version %d: expected error, got nil", v)
		}
	}
}

func TestCascadeDisable(t *testing.T) {
	reg := New(zap.NewNop())

	hub := newTestModule("hub")
	hub.info.APIVersion = 0
	scanner := newTestModule("scanner", "hub")

	_ = reg.Register(hub)
	_ = reg.Register(scanner)

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !reg.IsDisabled("hub") {
		t.Error("expected 'hub' to be disabled (bad API version)")
	}
	if !reg.IsDisabled("scanner") {
		t.Error("expected 'scanner' to be cascade disabled")
	}
}

func TestInitAllRequiredFails(t *testing.T) {
	reg := New(zap.NewNop())
	m := newTestModule("kiosk")
	m.info.Required = true
	m.initErr = errors.New("init failed")
	_ = reg.Register(m)
	_ = reg.Validate()

	if err := reg.InitAll(context.Background(), testDeps()); err == nil {
		t.Fatal("InitAll() expected error for required module failure, got nil")
	}
}

func TestInitAllOptionalDisabledOnFailure(t *testing.T) {
	reg := New(zap.NewNop())
	m := newTestModule("mqtt")
	m.initErr = errors.New("broker unreachable")
	_ = reg.Register(m)
	_ = reg.Validate()

	if err := reg.InitAll(context.Background(), testDeps()); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if !reg.IsDisabled("mqtt") {
		t.Error("expected optional module 'mqtt' to be disabled after init failure")
	}
}

func TestStartAllStopAll(t *testing.T) {
	reg := New(zap.NewNop())
	m := newTestModule("hub")
	off := newTestModule("mqtt")
	off.initErr = errors.New("disabled")
	_ = reg.Register(m)
	_ = reg.Register(off)
	_ = reg.Validate()

	ctx := context.Background()
	_ = reg.InitAll(ctx, testDeps())
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	reg.StopAll(ctx)

	if !m.started || !m.stopped {
		t.Errorf("hub started=%v stopped=%v, want both true", m.started, m.stopped)
	}
	if off.started || off.stopped {
		t.Error("disabled module must not be started or stopped")
	}
}

func TestGet(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(newTestModule("kiosk"))

	if _, ok := reg.Get("kiosk"); !ok {
		t.Error("Get('kiosk') returned false, want true")
	}
	if _, ok := reg.Get("nonexistent"); ok {
		t.Error("Get('nonexistent') returned true, want false")
	}
}

func TestAllRoutesHTTPProvider(t *testing.T) {
	reg := New(zap.NewNop())

	hp := &testHTTPModule{
		testModule: *newTestModule("kiosk"),
		routes:     []plugin.Route{{Method: "GET", Path: "/status"}},
	}
	_ = reg.Register(hp)
	_ = reg.Register(newTestModule("noroutes"))
	_ = reg.Validate()
	_ = reg.InitAll(context.Background(), testDeps())

	routes := reg.AllRoutes()
	if len(routes) != 1 {
		t.Fatalf("AllRoutes() returned %d route sets, want 1", len(routes))
	}
	if _, ok := routes["kiosk"]; !ok {
		t.Error("AllRoutes() missing 'kiosk' routes")
	}
}

func TestHealthReportsCheckersAndDisabled(t *testing.T) {
	reg := New(zap.NewNop())
	_ = reg.Register(&testHealthModule{testModule: *newTestModule("scanner")})
	off := newTestModule("mqtt")
	off.initErr = errors.New("broker unreachable")
	_ = reg.Register(off)
	_ = reg.Validate()
	_ = reg.InitAll(context.Background(), testDeps())

	health := reg.Health(context.Background())
	if got := health["scanner"].Status; got != "degraded" {
		t.Errorf("scanner status = %q, want degraded", got)
	}
	if got := health["mqtt"].Status; got != "disabled" {
		t.Errorf("mqtt status = %q, want disabled", got)
	}
}
