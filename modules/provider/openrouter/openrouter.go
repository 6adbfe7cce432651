// Package openrouter implements an llm.Provider backed by the OpenRouter
// API, an OpenAI-compatible endpoint fronting hosted models. The API key
// arrives through Reconfigure after being read from the encrypted secret
// store; it is never persisted here.
package openrouter

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/glossahq/glossa/internal/core"
	"github.com/glossahq/glossa/internal/llm"
)

// Interface guards.
var (
	_ llm.Provider = (*OpenRouter)(nil)
	_ core.Module  = (*OpenRouter)(nil)
)

func init() {
	core.RegisterModule(&OpenRouter{})
}

// connectTimeout bounds dial, TLS, and response-header waits. There is no
// overall client timeout: streaming reads are governed by the request
// context instead.
const connectTimeout = 30 * time.Second

// OpenRouter is an llm.Provider that communicates with the OpenRouter API.
type OpenRouter struct {
	client  *http.Client
	baseURL string
	ops     llm.AbortController

	mu  sync.Mutex
	cfg llm.OpenRouterConfig
}

// ModuleInfo returns the module metadata for registration. Instances are
// constructed by the provider registry and configured via Reconfigure, not
// from the config file.
func (o *OpenRouter) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: "provider.openrouter",
		New: func() core.Module {
			return &OpenRouter{
				client: &http.Client{
					Transport: &http.Transport{
						DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
						TLSHandshakeTimeout:   connectTimeout,
						ResponseHeaderTimeout: connectTimeout,
					},
				},
				baseURL: defaultBaseURL,
			}
		},
	}
}

// Kind identifies the backend.
func (o *OpenRouter) Kind() llm.Kind {
	return llm.KindOpenRouter
}

// Reconfigure applies new credentials in place. The API key is required.
// A call already in flight keeps the credentials it started with.
func (o *OpenRouter) Reconfigure(cfg llm.Config) error {
	if cfg.Kind != llm.KindOpenRouter || cfg.OpenRouter == nil {
		return fmt.Errorf("openrouter: config kind %q does not match provider", cfg.Kind)
	}
	if cfg.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter: api key is required")
	}

	o.mu.Lock()
	o.cfg = *cfg.OpenRouter
	o.mu.Unlock()
	return nil
}

// Abort cancels the most recent in-flight operation. Idempotent; a no-op
// when nothing is in flight.
func (o *OpenRouter) Abort() {
	o.ops.Abort()
}

// snapshot returns the credentials for one request.
func (o *OpenRouter) snapshot() llm.OpenRouterConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}
