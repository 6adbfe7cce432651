// Package ollama implements an llm.Provider backed by a local Ollama
// server. It is the default backend: reachable without credentials on
// 127.0.0.1:11434, with an enumerable model catalog.
package ollama

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
	_ llm.Provider = (*Ollama)(nil)
	_ core.Module  = (*Ollama)(nil)
)

func init() {
	core.RegisterModule(&Ollama{})
}

// connectTimeout bounds dial, TLS, and response-header waits. There is no
// overall client timeout: streaming reads are governed by the request
// context instead.
const connectTimeout = 10 * time.Second

// Ollama is an llm.Provider that speaks the Ollama REST API.
type Ollama struct {
	client *http.Client
	ops    llm.AbortController

	mu  sync.Mutex
	cfg llm.OllamaConfig
}

// ModuleInfo returns the module metadata for registration. Instances are
// constructed by the provider registry and configured via Reconfigure, not
// from the config file.
func (o *Ollama) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: "provider.ollama",
		New: func() core.Module {
			return &Ollama{
				client: &http.Client{
					Transport: &http.Transport{
						DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
						TLSHandshakeTimeout:   connectTimeout,
						ResponseHeaderTimeout: connectTimeout,
					},
				},
				cfg: llm.OllamaConfig{
					Host: llm.DefaultOllamaHost,
					Port: llm.DefaultOllamaPort,
				},
			}
		},
	}
}

// Kind identifies the backend.
func (o *Ollama) Kind() llm.Kind {
	return llm.KindOllama
}

// Reconfigure applies new connection parameters in place. Zero host/port
// fall back to the local defaults. A call already in flight keeps the
// endpoint it started with.
func (o *Ollama) Reconfigure(cfg llm.Config) error {
	if cfg.Kind != llm.KindOllama || cfg.Ollama == nil {
		return fmt.Errorf("ollama: config kind %q does not match provider", cfg.Kind)
	}

	c := *cfg.Ollama
	if c.Host == "" {
		c.Host = llm.DefaultOllamaHost
	}
	if c.Port == 0 {
		c.Port = llm.DefaultOllamaPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("ollama: port %d out of range", c.Port)
	}

	o.mu.Lock()
	o.cfg = c
	o.mu.Unlock()
	return nil
}

// Abort cancels the most recent in-flight operation. Idempotent; a no-op
// when nothing is in flight.
func (o *Ollama) Abort() {
	o.ops.Abort()
}

// baseURL snapshots the configured endpoint.
func (o *Ollama) baseURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fmt.Sprintf("http://%s:%d", o.cfg.Host, o.cfg.Port)
}

// defaultModel snapshots the configured model name, which may be empty.
func (o *Ollama) defaultModel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg.Model
}
