// Package config loads KioskWatch configuration from a YAML file and
// KIOSKWATCH_* environment variables, and exposes it to modules through
// plugin.Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// KIOSKWATCH_MODULES_HUB_UPDATE_INTERVAL=500ms.
const EnvPrefix = "KIOSKWATCH"

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig adapts a *viper.Viper to plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty configuration.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) Unmarshal(target any) error           { return c.v.Unmarshal(target) }
func (c *ViperConfig) Get(key string) any                   { return c.v.Get(key) }
func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the subtree at key, or an empty config when absent.
func (c *ViperConfig) Sub(key string) plugin.Config {
	return New(c.v.Sub(key))
}

// Load reads the configuration file at path (optional) and applies defaults
// and environment overrides.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("kioskwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kioskwatch")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers every default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("modules.hub.update_interval", 2000*time.Millisecond)
	v.SetDefault("modules.hub.ping_interval", 25*time.Second)
	v.SetDefault("modules.hub.ping_timeout", 10*time.Second)
	v.SetDefault("modules.hub.outbox_size", 64)
	v.SetDefault("modules.hub.allowed_origins", "")

	v.SetDefault("modules.kiosk.rate_limit", 5.0)
	v.SetDefault("modules.kiosk.rate_burst", 10)

	v.SetDefault("modules.scanner.enabled", false)
	v.SetDefault("modules.scanner.scanner_id", "scanner-1")
	v.SetDefault("modules.scanner.baud", 9600)
	v.SetDefault("modules.scanner.lookup_timeout", 5*time.Second)
	v.SetDefault("modules.scanner.fault_backoff", 2*time.Second)

	v.SetDefault("modules.mqtt.enabled", false)
	v.SetDefault("modules.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("modules.mqtt.topic", "kiosks/+/status")
	v.SetDefault("modules.mqtt.client_id", "kioskwatch")
	v.SetDefault("modules.mqtt.qos", 1)
	v.SetDefault("modules.mqtt.username", "")
	v.SetDefault("modules.mqtt.password", "")
	v.SetDefault("modules.mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("modules.mqtt.keep_alive", 30*time.Second)

	v.SetDefault("modules.metrics.interval", 5*time.Second)
	v.SetDefault("modules.metrics.disk_path", "/")

	v.SetDefault("thresholds.cpu_warn", 85.0)
	v.SetDefault("thresholds.mem_warn", 90.0)
	v.SetDefault("thresholds.disk_warn", 90.0)
	v.SetDefault("thresholds.temp_warn", 75.0)
	v.SetDefault("thresholds.battery_warn", 20.0)

	v.SetDefault("lookup.db_path", "kioskwatch.db")
	v.SetDefault("lookup.seed_file", "")
}
