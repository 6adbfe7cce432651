package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux. When an access token is configured
// everything except the liveness check sits behind it; without one the
// endpoints are open.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Liveness stays public so process supervisors can poll it.
	r.Get("/healthz", g.handleHealthz())

	mount := func(r chi.Router) {
		r.Get("/status", g.handleStatus())
		if g.metrics != nil {
			r.Method(http.MethodGet, "/metrics", g.metrics.Handler())
		}
		if g.hub != nil {
			r.Get("/v1/session", g.hub.HandleSession)
		}
		if g.dispatcher != nil {
			r.Post("/v1/message", g.handleMessage())
		}
	}

	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.currentAuth, g.audit))
			mount(r)
		})
	} else {
		mount(r)
	}

	return r
}
