package gateway

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealthz reports daemon liveness. Provider reachability is a /status
// concern fed by the maintenance probe; a dead backend must not make the
// daemon look dead.
func (g *Gateway) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}
}
