package models

import "time"

// ScanResult classifies the outcome of one scanned line.
type ScanResult string

const (
	ScanFound         ScanResult = "found"
	ScanNotFound      ScanResult = "not_found"
	ScanInvalidFormat ScanResult = "invalid_format"
	ScanLookupError   ScanResult = "lookup_error"
)

// PassengerRecord is a reservation returned by the record provider.
type PassengerRecord struct {
	PNR         string    `json:"pnr" yaml:"pnr"`
	LastName    string    `json:"last_name" yaml:"last_name"`
	FirstName   string    `json:"first_name" yaml:"first_name"`
	Flight      string    `json:"flight,omitempty" yaml:"flight"`
	Seat        string    `json:"seat,omitempty" yaml:"seat"`
	Origin      string    `json:"origin,omitempty" yaml:"origin"`
	Destination string    `json:"destination,omitempty" yaml:"destination"`
	DepartureAt time.Time `json:"departure_at,omitempty" yaml:"departure_at"`
}

// ScanEvent is the transient result of one scanned line. It is published
// once and never stored.
type ScanEvent struct {
	ID          string            `json:"id"`
	ScannerID   string            `json:"scanner_id"`
	RawPayload  string            `json:"raw_payload"`
	ExtractedID string            `json:"extracted_id,omitempty"`
	Result      ScanResult        `json:"result"`
	Records     []PassengerRecord `json:"records,omitempty"`
	Error       string            `json:"error,omitempty"`
	ScannedAt   time.Time         `json:"scanned_at"`
	ResolvedAt  time.Time         `json:"resolved_at"`
}

// ScannerFault reports a read failure of the scan input stream itself.
type ScannerFault struct {
	ScannerID string    `json:"scanner_id"`
	Port      string    `json:"port,omitempty"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}
