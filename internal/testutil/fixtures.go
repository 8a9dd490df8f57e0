package testutil

import (
	"time"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// NewReport returns a StatusReport with all three well-known devices healthy.
// Override individual fields with options.
func NewReport(id string, opts ...func(*models.StatusReport)) models.StatusReport {
	r := models.StatusReport{
		ID: models.KioskID(id),
		DeviceHealth: map[string]models.HealthState{
			models.DeviceScale:   models.HealthOK,
			models.DeviceScanner: models.HealthOK,
			models.DeviceCamera:  models.HealthOK,
		},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithName sets the reported kiosk name.
func WithName(name string) func(*models.StatusReport) {
	return func(r *models.StatusReport) { r.Name = &name }
}

// WithLocation sets the reported kiosk location.
func WithLocation(loc string) func(*models.StatusReport) {
	return func(r *models.StatusReport) { r.Location = &loc }
}

// WithDevice sets the state of a single device.
func WithDevice(device string, state models.HealthState) func(*models.StatusReport) {
	return func(r *models.StatusReport) { r.DeviceHealth[device] = state }
}

// WithDevices replaces the whole device map.
func WithDevices(devices map[string]models.HealthState) func(*models.StatusReport) {
	return func(r *models.StatusReport) { r.DeviceHealth = devices }
}

// NewRecord returns a PassengerRecord for pnr with fixed defaults.
func NewRecord(pnr string, opts ...func(*models.PassengerRecord)) models.PassengerRecord {
	rec := models.PassengerRecord{
		PNR:         pnr,
		LastName:    "DOE",
		FirstName:   "JOHN",
		Flight:      "KW101",
		Seat:        "12A",
		Origin:      "LHR",
		Destination: "JFK",
		DepartureAt: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// WithPassenger sets the passenger name on a record.
func WithPassenger(last, first string) func(*models.PassengerRecord) {
	return func(r *models.PassengerRecord) {
		r.LastName = last
		r.FirstName = first
	}
}
