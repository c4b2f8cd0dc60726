// Package api implements the control plane's HTTP surface: a chi router
// serving the exact JSON shapes the assignment-service contract specifies
// — not a generic "data"-enveloped REST API, since the consumer on the
// other end is the agent's own HTTP client rather than a browser SPA.
package api

import (
	"encoding/json"
	"net/http"
)

// JSON writes status and payload as a JSON body with Content-Type set.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody mirrors FastAPI's HTTPException(detail=...) JSON shape, which
// the original control plane's error responses use verbatim.
type errorBody struct {
	Detail string `json:"detail"`
}

// Error writes a JSON error body {"detail": message} with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Detail: message})
}

// decodeJSON decodes the request body into dst, capping it at 1MB. Writes
// a 400 and returns false on any decode failure so handlers can
// early-return.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
