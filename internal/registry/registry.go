// Package registry manages the lifecycle of KioskWatch modules: dependency
// ordering, initialization, start and reverse-order shutdown.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"go.uber.org/zap"
)

// Registry holds registered modules in dependency order.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	order    []string // registration order until Validate, then dependency order
	disabled map[string]string
	started  []string
	logger   *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		plugins:  make(map[string]plugin.Plugin),
		disabled: make(map[string]string),
		logger:   logger,
	}
}

// Register adds a module. Names must be unique and non-empty.
func (r *Registry) Register(p plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Info().Name
	if name == "" {
		return errors.New("module name is empty")
	}
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.plugins[name] = p
	r.order = append(r.order, name)
	r.logger.Info("module registered",
		zap.String("name", name),
		zap.String("version", p.Info().Version),
	)
	return nil
}

// Validate checks API versions and dependencies, disables optional modules
// that cannot run (cascading to their dependents) and sorts the remaining
// modules so every module comes after its dependencies.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		info := r.plugins[name].Info()
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			if err := r.disableLocked(name, fmt.Sprintf("unsupported API version %d", info.APIVersion)); err != nil {
				return err
			}
			continue
		}
		for _, dep := range info.Dependencies {
			if _, ok := r.plugins[dep]; !ok {
				if err := r.disableLocked(name, fmt.Sprintf("missing dependency %q", dep)); err != nil {
					return err
				}
				break
			}
		}
	}

	sorted, err := r.topoSortLocked()
	if err != nil {
		return err
	}
	r.order = sorted

	// Cascade: anything depending on a disabled module is disabled too.
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		for _, dep := range r.plugins[name].Info().Dependencies {
			if _, off := r.disabled[dep]; off {
				if err := r.disableLocked(name, fmt.Sprintf("dependency %q disabled", dep)); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

// IsDisabled reports whether a module was disabled during Validate or InitAll.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, off := r.disabled[name]
	return off
}

// InitAll initializes every enabled module in dependency order. deps builds
// the per-module Dependencies.
func (r *Registry) InitAll(ctx context.Context, deps func(name string) plugin.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			r.logger.Info("module disabled, skipping", zap.String("name", name))
			continue
		}
		p := r.plugins[name]
		r.logger.Info("initializing module", zap.String("name", name))
		if err := p.Init(ctx, deps(name)); err != nil {
			if derr := r.disableLocked(name, err.Error()); derr != nil {
				return fmt.Errorf("initialize module %q: %w", name, err)
			}
			continue
		}
		if v, ok := p.(plugin.Validator); ok {
			if err := v.ValidateConfig(); err != nil {
				if derr := r.disableLocked(name, err.Error()); derr != nil {
					return fmt.Errorf("validate module %q: %w", name, err)
				}
			}
		}
	}
	return nil
}

// StartAll starts every enabled module in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		r.logger.Info("starting module", zap.String("name", name))
		if err := r.plugins[name].Start(ctx); err != nil {
			return fmt.Errorf("start module %q: %w", name, err)
		}
		r.started = append(r.started, name)
	}
	return nil
}

// StopAll stops started modules in reverse start order.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.started) - 1; i >= 0; i-- {
		name := r.started[i]
		r.logger.Info("stopping module", zap.String("name", name))
		if err := r.plugins[name].Stop(ctx); err != nil {
			r.logger.Error("failed to stop module", zap.String("name", name), zap.Error(err))
		}
	}
	r.started = nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// All returns all registered modules in current order.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// AllRoutes returns the routes of every enabled HTTPProvider, keyed by module name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		hp, ok := r.plugins[name].(plugin.HTTPProvider)
		if !ok {
			continue
		}
		if pr := hp.Routes(); len(pr) > 0 {
			routes[name] = pr
		}
	}
	return routes
}

// Health collects the health of every enabled HealthChecker.
func (r *Registry) Health(ctx context.Context) map[string]plugin.HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]plugin.HealthStatus)
	for _, name := range r.order {
		if reason, off := r.disabled[name]; off {
			out[name] = plugin.HealthStatus{Status: "disabled", Message: reason}
			continue
		}
		if hc, ok := r.plugins[name].(plugin.HealthChecker); ok {
			out[name] = hc.Health(ctx)
		}
	}
	return out
}

// disableLocked marks name disabled, or returns an error if it is required.
func (r *Registry) disableLocked(name, reason string) error {
	if r.plugins[name].Info().Required {
		return fmt.Errorf("required module %q cannot run: %s", name, reason)
	}
	r.disabled[name] = reason
	r.logger.Warn("module disabled", zap.String("name", name), zap.String("reason", reason))
	return nil
}

func (r *Registry) topoSortLocked() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.order))
	sorted := make([]string, 0, len(r.order))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("dependency cycle involving module %q", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range r.plugins[name].Info().Dependencies {
			if _, ok := r.plugins[dep]; !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		sorted = append(sorted, name)
		return nil
	}

	for _, name := range r.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
