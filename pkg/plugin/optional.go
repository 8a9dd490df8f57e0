package plugin

import "context"

// HTTPProvider is implemented by modules that expose REST API routes.
type HTTPProvider interface {
	Routes() []Route
}

// HealthStatus is a module's self-reported health.
type HealthStatus struct {
	Status  string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker is implemented by modules that report their health status.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// Validator is implemented by modules that validate their config post-init.
type Validator interface {
	ValidateConfig() error
}
