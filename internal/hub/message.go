package hub

import (
	"time"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// MessageType distinguishes the three kinds of subscriber messages.
type MessageType string

const (
	// TypeSnapshot is sent exactly once, when a subscriber connects.
	TypeSnapshot MessageType = "snapshot"
	// TypeUpdate is the periodic full state sent by the subscriber's poller.
	TypeUpdate MessageType = "update"
	// TypeEvent carries one event pushed through Publish.
	TypeEvent MessageType = "event"
)

// Message is the unit delivered to a Sink.
type Message struct {
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// State is the payload of snapshot and update messages.
type State struct {
	Kiosks  map[models.KioskID]models.KioskStatus `json:"kiosks"`
	Metrics *models.SystemMetrics                 `json:"metrics,omitempty"`
}
