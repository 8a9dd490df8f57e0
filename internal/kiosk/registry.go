// Package kiosk owns the registry of live kiosk state and the HTTP endpoints
// kiosks use to report it.
package kiosk

import (
	"context"
	"sync"

	"github.com/HerbHall/kioskwatch/internal/clock"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"go.uber.org/zap"
)

// Registry maps each kiosk to its latest reported status. It is the single
// source of truth for kiosk state; all reads return copies.
type Registry struct {
	mu     sync.RWMutex
	kiosks map[models.KioskID]models.KioskStatus

	clock  clock.Clock
	bus    plugin.EventBus
	logger *zap.Logger
}

// NewRegistry creates an empty registry. bus may be nil.
func NewRegistry(clk clock.Clock, bus plugin.EventBus, logger *zap.Logger) *Registry {
	return &Registry{
		kiosks: make(map[models.KioskID]models.KioskStatus),
		clock:  clk,
		bus:    bus,
		logger: logger,
	}
}

// Upsert applies a report, stamps LastUpdated, and returns the stored status.
// Unknown kiosks are created. DeviceHealth is replaced wholesale; Name and Location keep their
// previous values when the report omits them.
func (r *Registry) Upsert(ctx context.Context, report models.StatusReport) models.KioskStatus {
	r.mu.Lock()
	prev, existed := r.kiosks[report.ID]

	next := models.KioskStatus{
		ID:           report.ID,
		Name:         prev.Name,
		Location:     prev.Location,
		DeviceHealth: make(map[string]models.HealthState, len(report.DeviceHealth)),
		LastUpdated:  r.clock.Now(),
	}
	if report.Name != nil {
		next.Name = *report.Name
	}
	if report.Location != nil {
		next.Location = *report.Location
	}
	for device, state := range report.DeviceHealth {
		next.DeviceHealth[device] = state
	}
	next.Health = DeriveHealth(next.DeviceHealth)

	r.kiosks[report.ID] = next
	out := next.Clone()
	r.mu.Unlock()

	// Notifications are sent outside the lock, so two racing reports for one
	// kiosk may be announced out of order; the next periodic update corrects it.

	if !existed {
		r.logger.Info("kiosk registered",
			zap.String("kiosk_id", string(report.ID)),
			zap.String("name", out.Name),
		)
	} else if prev.Health != out.Health {
		r.logger.Info("kiosk health changed",
			zap.String("kiosk_id", string(report.ID)),
			zap.String("from", string(prev.Health)),
			zap.String("to", string(out.Health)),
		)
	}

	if r.bus != nil {
		payload := &StatusEvent{Status: out.Clone(), Previous: prev.Health}
		topic := TopicStatusUpdated
		if !existed {
			topic = TopicKioskAdded
		}
		_ = r.bus.Publish(ctx, plugin.Event{
			Topic:     topic,
			Source:    "kiosk",
			Timestamp: out.LastUpdated,
			Payload:   payload,
		})
	}
	return out
}

// Get returns the status of one kiosk, or false if it never reported.
func (r *Registry) Get(id models.KioskID) (models.KioskStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.kiosks[id]
	if !ok {
		return models.KioskStatus{}, false
	}
	return s.Clone(), true
}

// GetAll returns a point-in-time copy of every kiosk status.
func (r *Registry) GetAll() map[models.KioskID]models.KioskStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[models.KioskID]models.KioskStatus, len(r.kiosks))
	for id, s := range r.kiosks {
		out[id] = s.Clone()
	}
	return out
}

// Len returns the number of known kiosks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kiosks)
}
