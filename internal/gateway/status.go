package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime            int64  `json:"uptime_seconds"`
	Provider          string `json:"provider,omitempty"`
	ProviderReachable *bool  `json:"provider_reachable,omitempty"`
	ActiveStreams     int    `json:"active_streams"`
	ConnectedClients  int    `json:"connected_clients"`
}

// handleStatus returns an http.HandlerFunc for GET /status. Fields backed by
// unresolved services report their zero value.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: int64(time.Since(g.startedAt).Seconds()),
		}

		if g.providers != nil {
			resp.Provider = string(g.providers.CurrentKind())
		}
		if g.streams != nil {
			resp.ActiveStreams = g.streams.Active()
		}
		if g.hub != nil {
			resp.ConnectedClients = g.hub.Len()
		}
		if g.probe != nil {
			if ok, at := g.probe.LastProbe(); !at.IsZero() {
				resp.ProviderReachable = &ok
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
