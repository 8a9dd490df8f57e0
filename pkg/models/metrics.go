package models

import "time"

// HealthLevel classifies a host metrics sample against warning thresholds.
type HealthLevel string

const (
	LevelHealthy  HealthLevel = "healthy"
	LevelWarning  HealthLevel = "warning"
	LevelCritical HealthLevel = "critical"
)

// SystemMetrics is one sample from the system metrics provider.
type SystemMetrics struct {
	CPUPercent     float64     `json:"cpu_percent"`
	MemoryPercent  float64     `json:"memory_percent"`
	DiskPercent    float64     `json:"disk_percent"`
	TemperatureC   *float64    `json:"temperature_c,omitempty"`
	BatteryPercent *float64    `json:"battery_percent,omitempty"`
	Health         HealthLevel `json:"health"`
	Warnings       []string    `json:"warnings,omitempty"`
	CollectedAt    time.Time   `json:"collected_at"`
}
