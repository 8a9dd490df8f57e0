package scanner

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/HerbHall/kioskwatch/internal/server"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
)

const maxScanBytes = 4 << 10

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/scans", Handler: m.handleSubmit},
	}
}

type scanRequest struct {
	Raw       string `json:"raw"`
	ScannerID string `json:"scanner_id"`
}

// handleSubmit accepts a scan from a kiosk whose scanner is not wired to
// this host. The result is published like any serial scan.
func (m *Module) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScanBytes))
	if err != nil {
		server.BadRequest(w, "unable to read request body", r.URL.Path)
		return
	}
	var req scanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if strings.TrimSpace(req.ScannerID) == "" {
		server.BadRequest(w, "scanner_id is required", r.URL.Path)
		return
	}

	m.pipeline.SubmitAs(r.Context(), req.ScannerID, req.Raw)
	server.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
