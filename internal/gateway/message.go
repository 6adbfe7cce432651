package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/glossahq/glossa/pkg/protocol"
)

// maxMessageBytes caps a one-shot request body. EXTRACT_TEXT payloads carry
// base64 screenshots, so the cap is generous.
const maxMessageBytes = 32 << 20

// handleMessage serves POST /v1/message: one request envelope in, one
// response envelope out. One-shot senders have no session, so
// server-initiated notifications cannot reach them; the router rejects
// GENERATE_STREAM on this path for that reason.
func (g *Gateway) handleMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

		var env protocol.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "invalid envelope: "+err.Error(), http.StatusBadRequest)
			return
		}
		if env.Type == protocol.TypeResponse || env.IsNotification() {
			http.Error(w, "type "+string(env.Type)+" cannot be sent as a request", http.StatusBadRequest)
			return
		}

		resp := g.dispatcher.Dispatch(r.Context(), "", env)

		reply, err := protocol.NewEnvelope(protocol.TypeResponse, env.ID, resp)
		if err != nil {
			g.logger.Error("marshal response failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}
}
