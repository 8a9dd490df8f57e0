// Package plugin defines the contracts shared by KioskWatch modules: module
// lifecycle, routing, configuration and the in-process event bus.
package plugin

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// API versions accepted by the module registry.
const (
	APIVersionMin     = 1
	APIVersionCurrent = 1
)

// Route represents an HTTP route exposed by a module.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// PluginInfo describes a module to the registry.
type PluginInfo struct {
	Name         string
	Version      string
	Description  string
	Dependencies []string
	// Required modules abort startup on failure; optional ones are disabled.
	Required   bool
	APIVersion int
}

// Dependencies are handed to each module during Init.
type Dependencies struct {
	Config Config
	Logger *zap.Logger
	Bus    EventBus
}

// Plugin defines the interface that all KioskWatch modules must implement.
type Plugin interface {
	// Info returns the module's metadata.
	Info() PluginInfo

	// Init wires the module to its configuration, logger and bus.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins the module's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the module.
	Stop(ctx context.Context) error
}
