package gateway

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glossahq/glossa/internal/security"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func staticAuth(cfg AuthConfig) func() AuthConfig {
	return func() AuthConfig { return cfg }
}

func TestAuthMiddleware_Tokens(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{Token: "secret-token"}

	tests := []struct {
		name   string
		target string
		bearer string
		want   int
	}{
		{"valid bearer", "/test", "secret-token", http.StatusOK},
		{"invalid bearer", "/test", "wrong-token", http.StatusUnauthorized},
		{"valid query token", "/test?access_token=secret-token", "", http.StatusOK},
		{"invalid query token", "/test?access_token=nope", "", http.StatusUnauthorized},
		{"missing token", "/test", "", http.StatusUnauthorized},
		{"bearer wins over query", "/test?access_token=secret-token", "wrong-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := authMiddleware(staticAuth(cfg), nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_EmitsAuditEvents(t *testing.T) {
	t.Parallel()

	var events []security.AuditEvent
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) { events = append(events, e) },
	})

	handler := authMiddleware(staticAuth(AuthConfig{Token: "tok"}), audit)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest(http.MethodGet, "/status", nil)
	req2.Header.Set("Authorization", "Bearer tok")
	handler.ServeHTTP(httptest.NewRecorder(), req2)

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != security.EventAuthFailure {
		t.Errorf("first event = %q, want %q", events[0].Type, security.EventAuthFailure)
	}
	if events[1].Type != security.EventAuthSuccess {
		t.Errorf("second event = %q, want %q", events[1].Type, security.EventAuthSuccess)
	}
	if events[0].Metadata["path"] != "/status" {
		t.Errorf("event path = %q, want %q", events[0].Metadata["path"], "/status")
	}
}

func TestAuthMiddleware_TokenRotation(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{Token: "old"}
	var mu sync.Mutex
	handler := authMiddleware(func() AuthConfig {
		mu.Lock()
		defer mu.Unlock()
		return cfg
	}, nil)(okHandler())

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if got := do("old"); got != http.StatusOK {
		t.Fatalf("before rotation: %d", got)
	}

	mu.Lock()
	cfg = AuthConfig{Token: "new"}
	mu.Unlock()

	if got := do("old"); got != http.StatusUnauthorized {
		t.Fatalf("stale token accepted after rotation: %d", got)
	}
	if got := do("new"); got != http.StatusOK {
		t.Fatalf("rotated token rejected: %d", got)
	}
}

func TestAuthMiddleware_UnconfiguredPassesThrough(t *testing.T) {
	t.Parallel()

	handler := authMiddleware(staticAuth(AuthConfig{}), nil)(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	if (AuthConfig{}).IsConfigured() {
		t.Error("empty config should not be configured")
	}
	if !(AuthConfig{Token: "t"}).IsConfigured() {
		t.Error("token config should be configured")
	}
}
