package sysmetrics

import (
	"fmt"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// Thresholds are warning levels. A reading halfway between the warning level
// and its limit (100%, or zero for battery) is critical; temperature goes
// critical 10°C above its warning level.
type Thresholds struct {
	CPUWarn     float64 `mapstructure:"cpu_warn"`
	MemWarn     float64 `mapstructure:"mem_warn"`
	DiskWarn    float64 `mapstructure:"disk_warn"`
	TempWarn    float64 `mapstructure:"temp_warn"`
	BatteryWarn float64 `mapstructure:"battery_warn"`
}

// DefaultThresholds match the configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{CPUWarn: 85, MemWarn: 90, DiskWarn: 90, TempWarn: 75, BatteryWarn: 20}
}

// Classify sets m.Health and m.Warnings from th and returns the result.
// A zero threshold disables that check.
func Classify(m models.SystemMetrics, th Thresholds) models.SystemMetrics {
	level := models.LevelHealthy
	var warnings []string

	raise := func(l models.HealthLevel, msg string) {
		warnings = append(warnings, msg)
		if l == models.LevelCritical || level == models.LevelHealthy {
			level = l
		}
	}
	checkHigh := func(name string, v, warn, critical float64) {
		if warn <= 0 {
			return
		}
		switch {
		case v >= critical:
			raise(models.LevelCritical, fmt.Sprintf("%s at %.1f%% (critical)", name, v))
		case v >= warn:
			raise(models.LevelWarning, fmt.Sprintf("%s at %.1f%%", name, v))
		}
	}

	checkHigh("cpu", m.CPUPercent, th.CPUWarn, th.CPUWarn+(100-th.CPUWarn)/2)
	checkHigh("memory", m.MemoryPercent, th.MemWarn, th.MemWarn+(100-th.MemWarn)/2)
	checkHigh("disk", m.DiskPercent, th.DiskWarn, th.DiskWarn+(100-th.DiskWarn)/2)

	if t := m.TemperatureC; t != nil && th.TempWarn > 0 {
		switch {
		case *t >= th.TempWarn+10:
			raise(models.LevelCritical, fmt.Sprintf("temperature at %.1f°C (critical)", *t))
		case *t >= th.TempWarn:
			raise(models.LevelWarning, fmt.Sprintf("temperature at %.1f°C", *t))
		}
	}
	if b := m.BatteryPercent; b != nil && th.BatteryWarn > 0 {
		switch {
		case *b <= th.BatteryWarn/2:
			raise(models.LevelCritical, fmt.Sprintf("battery at %.0f%% (critical)", *b))
		case *b <= th.BatteryWarn:
			raise(models.LevelWarning, fmt.Sprintf("battery at %.0f%%", *b))
		}
	}

	m.Health = level
	m.Warnings = warnings
	return m
}
