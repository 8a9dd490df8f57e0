package kiosk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/kioskwatch/pkg/models"
)

// Sentinel errors returned by ParseReport.
var (
	ErrMissingKioskID = errors.New("kioskId is required")
	ErrInvalidPayload = errors.New("invalid status payload")
)

// statusPayload is the wire shape kiosks post. Device states may be strings
// or booleans, so they are decoded loosely.
type statusPayload struct {
	KioskID       string         `json:"kioskId"`
	KioskIDSnake  string         `json:"kiosk_id"`
	ID            string         `json:"id"`
	Name          *string        `json:"name"`
	Location      *string        `json:"location"`
	WeightStatus  any            `json:"weightStatus"`
	ScaleStatus   any            `json:"scaleStatus"`
	ScannerStatus any            `json:"scannerStatus"`
	CameraStatus  any            `json:"cameraStatus"`
	DeviceHealth  map[string]any `json:"deviceHealth"`
}

// ParseReport decodes a status body into a StatusReport.
func ParseReport(body []byte) (models.StatusReport, error) {
	return ParseReportWithID(body, "")
}

// ParseReportWithID is ParseReport with a fallback kiosk id, used when the
// transport already identifies the kiosk (e.g. the MQTT topic).
func ParseReportWithID(body []byte, fallbackID string) (models.StatusReport, error) {
	var p statusPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.StatusReport{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	id := firstNonEmpty(p.KioskID, p.KioskIDSnake, p.ID, fallbackID)
	if id == "" {
		return models.StatusReport{}, ErrMissingKioskID
	}

	report := models.StatusReport{
		ID:           models.KioskID(id),
		Name:         trimmed(p.Name),
		Location:     trimmed(p.Location),
		DeviceHealth: make(map[string]models.HealthState),
	}
	for device, v := range p.DeviceHealth {
		if v == nil {
			continue
		}
		report.DeviceHealth[strings.ToLower(strings.TrimSpace(device))] = ParseState(v)
	}

	// Flat fields win over the deviceHealth object.
	flat := []struct {
		device string
		value  any
	}{
		{models.DeviceScale, p.ScaleStatus},
		{models.DeviceScale, p.WeightStatus},
		{models.DeviceScanner, p.ScannerStatus},
		{models.DeviceCamera, p.CameraStatus},
	}
	for _, f := range flat {
		if f.value != nil {
			report.DeviceHealth[f.device] = ParseState(f.value)
		}
	}

	return report, nil
}

// ParseState maps a loosely typed device state to a HealthState.
func ParseState(v any) models.HealthState {
	switch s := v.(type) {
	case bool:
		if s {
			return models.HealthOK
		}
		return models.HealthFail
	case string:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "ok", "good", "online", "healthy", "connected", "true", "ready":
			return models.HealthOK
		case "fail", "failed", "error", "offline", "disconnected", "false", "fault":
			return models.HealthFail
		}
	}
	return models.HealthUnknown
}

// DeriveHealth folds device states into an overall kiosk state: any failure
// fails the kiosk, all-ok is ok, anything else (including no devices) is unknown.
func DeriveHealth(devices map[string]models.HealthState) models.HealthState {
	if len(devices) == 0 {
		return models.HealthUnknown
	}
	overall := models.HealthOK
	for _, s := range devices {
		switch s {
		case models.HealthFail:
			return models.HealthFail
		case models.HealthOK:
		default:
			overall = models.HealthUnknown
		}
	}
	return overall
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// trimmed returns nil for absent or blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
