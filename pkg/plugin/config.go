package plugin

import "time"

// Config is the read-only configuration view handed to modules.
type Config interface {
	Unmarshal(target any) error
	Get(key string) any
	GetString(key string) string
	GetInt(key string) int
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	// Sub returns a scoped view. It never returns nil.
	Sub(key string) Config
}
