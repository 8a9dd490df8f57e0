package models

import "time"

// KioskID identifies one physical kiosk. It is the registry's primary key.
type KioskID string

// HealthState is the reported state of one kiosk device.
type HealthState string

const (
	HealthOK      HealthState = "ok"
	HealthFail    HealthState = "fail"
	HealthUnknown HealthState = "unknown"
)

// Well-known kiosk device names.
const (
	DeviceScale   = "scale"
	DeviceScanner = "scanner"
	DeviceCamera  = "camera"
)

// KioskStatus is the latest known state of a kiosk.
type KioskStatus struct {
	ID           KioskID                `json:"kiosk_id"`
	Name         string                 `json:"name,omitempty"`
	Location     string                 `json:"location,omitempty"`
	DeviceHealth map[string]HealthState `json:"device_health"`
	// Health is derived from DeviceHealth on every upsert.
	Health      HealthState `json:"health"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Clone returns a deep copy safe to hand outside the registry.
func (s KioskStatus) Clone() KioskStatus {
	out := s
	out.DeviceHealth = make(map[string]HealthState, len(s.DeviceHealth))
	for k, v := range s.DeviceHealth {
		out.DeviceHealth[k] = v
	}
	return out
}

// StatusReport is one normalized status report from a kiosk. Nil Name or
// Location means the field was not part of the report.
type StatusReport struct {
	ID           KioskID
	Name         *string
	Location     *string
	DeviceHealth map[string]HealthState
}
