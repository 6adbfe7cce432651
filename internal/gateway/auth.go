package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/glossahq/glossa/internal/security"
)

// authMiddleware validates the shared access token using constant-time
// comparison. The token arrives as a Bearer header or, for WebSocket dials
// where setting headers is awkward, an access_token query parameter.
// current is read per request so a config reload can rotate the token under
// live traffic; an unconfigured AuthConfig passes requests through. If an
// AuditLogger is provided, auth_success and auth_failure events are emitted.
func authMiddleware(current func() AuthConfig, audit *security.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := current()
			if !cfg.IsConfigured() {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}

			if token == "" {
				emitAuthEvent(audit, security.EventAuthFailure, r, "missing token")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if !constantTimeEqual(token, cfg.Token) {
				emitAuthEvent(audit, security.EventAuthFailure, r, "invalid token")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			emitAuthEvent(audit, security.EventAuthSuccess, r, "token")
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer x" header,
// or returns "".
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}

// emitAuthEvent logs an auth event to the audit logger if available.
func emitAuthEvent(audit *security.AuditLogger, eventType security.EventType, r *http.Request, detail string) {
	if audit == nil {
		return
	}
	audit.Log(security.AuditEvent{
		Type:   eventType,
		Detail: detail,
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
