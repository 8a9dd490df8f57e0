// Package lookup resolves booking references to passenger records.
package lookup

import (
	"context"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// Provider resolves a PNR to the passenger records booked under it. An
// unknown PNR yields an empty slice and a nil error; errors mean the lookup
// itself failed.
type Provider interface {
	Lookup(ctx context.Context, pnr string) ([]models.PassengerRecord, error)
}
