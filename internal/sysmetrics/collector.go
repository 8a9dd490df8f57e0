// Package sysmetrics samples host metrics (CPU, memory, disk, temperature,
// battery) for inclusion in dashboard snapshots.
package sysmetrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// Collector gathers one metrics sample from the host.
type Collector interface {
	Collect(ctx context.Context) (models.SystemMetrics, error)
}

// hostCollector reads metrics through gopsutil. Every source is a function
// field so tests can substitute fixed readings.
type hostCollector struct {
	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	temperatures  func(ctx context.Context) ([]host.TemperatureStat, error)
	battery       func() (float64, bool)

	diskPath string
	now      func() time.Time
	logger   *zap.Logger
}

// Compile-time guard.
var _ Collector = (*hostCollector)(nil)

// NewCollector returns a Collector for the local host. diskPath selects the
// filesystem whose usage is reported ("/" when empty).
func NewCollector(diskPath string, logger *zap.Logger) Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &hostCollector{
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		diskUsage:     disk.UsageWithContext,
		temperatures:  host.SensorsTemperaturesWithContext,
		battery:       sysfsBattery,
		diskPath:      diskPath,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger,
	}
}

// Collect returns a sample. CPU is mandatory; the other readings are left
// zero or nil when the host cannot provide them.
func (c *hostCollector) Collect(ctx context.Context) (models.SystemMetrics, error) {
	var m models.SystemMetrics

	// Interval 0 compares against the previous call, so it never blocks.
	pct, err := c.cpuPercent(ctx, 0, false)
	if err != nil {
		return m, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) > 0 {
		m.CPUPercent = pct[0]
	}

	if vm, err := c.virtualMemory(ctx); err != nil {
		c.logger.Debug("memory stats unavailable", zap.Error(err))
	} else {
		m.MemoryPercent = vm.UsedPercent
	}

	if du, err := c.diskUsage(ctx, c.diskPath); err != nil {
		c.logger.Debug("disk usage unavailable", zap.String("path", c.diskPath), zap.Error(err))
	} else {
		m.DiskPercent = du.UsedPercent
	}

	// gopsutil returns partial sensor lists together with a warning error.
	temps, err := c.temperatures(ctx)
	if err != nil && len(temps) == 0 {
		c.logger.Debug("temperature sensors unavailable", zap.Error(err))
	}
	if hottest, ok := maxTemperature(temps); ok {
		m.TemperatureC = &hottest
	}

	if b, ok := c.battery(); ok {
		m.BatteryPercent = &b
	}

	m.CollectedAt = c.now()
	return m, nil
}

func maxTemperature(temps []host.TemperatureStat) (float64, bool) {
	var hottest float64
	found := false
	for _, t := range temps {
		if t.Temperature <= 0 {
			continue
		}
		if !found || t.Temperature > hottest {
			hottest = t.Temperature
			found = true
		}
	}
	return hottest, found
}

// sysfsBattery reads the first battery capacity exposed under
// /sys/class/power_supply. Hosts without a battery report false.
func sysfsBattery() (float64, bool) {
	paths, _ := filepath.Glob("/sys/class/power_supply/BAT*/capacity")
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
