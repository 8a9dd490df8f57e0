package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound    = "https://kioskwatch.dev/problems/not-found"
	ProblemTypeBadRequest  = "https://kioskwatch.dev/problems/bad-request"
	ProblemTypeInternal    = "https://kioskwatch.dev/problems/internal-error"
	ProblemTypeRateLimited = "https://kioskwatch.dev/problems/rate-limited"
	ProblemTypeUnavailable = "https://kioskwatch.dev/problems/unavailable"
)

// Problem is an RFC 7807 Problem Details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

var problemTypes = map[int]string{
	http.StatusNotFound:            ProblemTypeNotFound,
	http.StatusBadRequest:          ProblemTypeBadRequest,
	http.StatusInternalServerError: ProblemTypeInternal,
	http.StatusTooManyRequests:     ProblemTypeRateLimited,
	http.StatusServiceUnavailable:  ProblemTypeUnavailable,
}

// WriteProblem writes p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     problemTypes[status],
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// NotFound writes a 404 problem, e.g. for a kiosk that never reported.
func NotFound(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, http.StatusNotFound, detail, instance)
}

// BadRequest writes a 400 problem for a report or scan that failed validation.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, http.StatusBadRequest, detail, instance)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, http.StatusInternalServerError, detail, instance)
}

// RateLimited writes a 429 problem for a kiosk over its report budget.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, http.StatusTooManyRequests, detail, instance)
}

// Unavailable writes a 503 problem.
func Unavailable(w http.ResponseWriter, detail, instance string) {
	writeStatus(w, http.StatusServiceUnavailable, detail, instance)
}
