package llm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/glossahq/glossa/internal/core"
)

// ModuleIDPrefix is the core module namespace for provider backends: a kind
// k is registered as "provider.<k>".
const ModuleIDPrefix = "provider."

// Registry is the single point of truth for the currently configured
// provider. It avoids redundant adapter construction: an unchanged config
// reuses the held instance, a same-kind change reconfigures it in place, and
// only a kind change constructs a fresh adapter.
//
// Reconfiguration swaps the held reference; a request already holding the
// prior instance finishes against it undisturbed.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	current Provider
	cfg     Config
}

// NewRegistry creates an empty registry. The first Get constructs the
// default local backend unless a config arrives earlier.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Get returns the provider for cfg. A nil cfg means "whatever is current",
// falling back to the default local backend so callers never receive a nil
// provider. Equal configs return the held instance unchanged; a same-kind
// change is applied in place via Reconfigure; a kind change constructs a new
// adapter and swaps it in.
func (r *Registry) Get(cfg *Config) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg == nil {
		if r.current != nil {
			return r.current, nil
		}
		return r.swapLocked(DefaultConfig())
	}

	if r.current != nil && r.cfg.Equal(*cfg) {
		return r.current, nil
	}

	if r.current != nil && r.cfg.Kind == cfg.Kind {
		if err := r.current.Reconfigure(*cfg); err != nil {
			return nil, err
		}
		r.cfg = *cfg
		r.logger.Info("provider reconfigured", "kind", cfg.Kind)
		return r.current, nil
	}

	return r.swapLocked(*cfg)
}

// swapLocked constructs the adapter for cfg and installs it. Callers hold r.mu.
func (r *Registry) swapLocked(cfg Config) (Provider, error) {
	p, err := construct(cfg)
	if err != nil {
		return nil, err
	}
	r.current = p
	r.cfg = cfg
	r.logger.Info("provider configured", "kind", cfg.Kind)
	return p, nil
}

// Current returns the held provider without constructing one, or nil.
func (r *Registry) Current() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// CurrentKind returns the active kind, or "" if none is configured.
func (r *Registry) CurrentKind() Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.cfg.Kind
}

// Reset clears the held provider. Teardown and test hook.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Abort()
	}
	r.current = nil
	r.cfg = Config{}
}

// construct builds a provider for cfg through the core module registry and
// applies the config.
func construct(cfg Config) (Provider, error) {
	id := ModuleIDPrefix + string(cfg.Kind)
	info, ok := core.GetModule(id)
	if !ok {
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
	p, ok := info.New().(Provider)
	if !ok {
		return nil, fmt.Errorf("module %s does not implement llm.Provider", id)
	}
	if err := p.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return p, nil
}
