package kiosk

import "github.com/HerbHall/kioskwatch/pkg/models"

// Event topics published by the kiosk registry.
const (
	TopicStatusUpdated = "kiosk.status.updated"
	TopicKioskAdded    = "kiosk.added"
)

// StatusEvent is the payload for TopicStatusUpdated and TopicKioskAdded.
type StatusEvent struct {
	Status models.KioskStatus `json:"status"`
	// Previous is the overall health before this report; empty for new kiosks.
	Previous models.HealthState `json:"previous_health,omitempty"`
}
