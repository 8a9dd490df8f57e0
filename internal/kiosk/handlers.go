package kiosk

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/HerbHall/kioskwatch/internal/server"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"go.uber.org/zap"
)

// maxReportBytes caps a single status body.
const maxReportBytes = 64 << 10

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/status", Handler: m.handleReport},
		{Method: "GET", Path: "/status", Handler: m.handleList},
		{Method: "GET", Path: "/status/{id}", Handler: m.handleGet},
	}
}

// handleReport ingests one kiosk status report and returns the stored record.
func (m *Module) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBytes))
	if err != nil {
		m.metrics.StatusReport("http", "invalid")
		server.BadRequest(w, "unable to read request body", r.URL.Path)
		return
	}

	report, err := ParseReport(body)
	if err != nil {
		m.metrics.StatusReport("http", "invalid")
		switch {
		case errors.Is(err, ErrMissingKioskID):
			server.BadRequest(w, "kioskId is required", r.URL.Path)
		case errors.Is(err, ErrInvalidPayload):
			server.BadRequest(w, "invalid JSON body", r.URL.Path)
		default:
			m.logger.Error("failed to parse status report", zap.Error(err))
			server.InternalError(w, "failed to parse status report", r.URL.Path)
		}
		return
	}

	if !m.limiter.Allow(report.ID) {
		m.metrics.StatusReport("http", "rate_limited")
		server.RateLimited(w, "too many status reports for kiosk "+string(report.ID), r.URL.Path)
		return
	}

	status := m.registry.Upsert(r.Context(), report)
	m.metrics.StatusReport("http", "accepted")
	m.logger.Debug("status report accepted",
		zap.String("kiosk_id", string(status.ID)),
		zap.String("health", string(status.Health)),
	)
	server.WriteJSON(w, http.StatusCreated, status)
}

// handleList returns every known kiosk, sorted by id.
func (m *Module) handleList(w http.ResponseWriter, _ *http.Request) {
	all := m.registry.GetAll()
	out := make([]models.KioskStatus, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	server.WriteJSON(w, http.StatusOK, out)
}

// handleGet returns one kiosk or 404 if it never reported.
func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, ok := m.registry.Get(models.KioskID(id))
	if !ok {
		server.NotFound(w, "kiosk "+id+" has not reported", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, status)
}
