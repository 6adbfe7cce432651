package router

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/settings"
	"github.com/glossahq/glossa/pkg/protocol"
)

// defaultDescriptor is the stored-shape equivalent of llm.DefaultConfig,
// reported by GET_CONFIG before anything has been saved.
func defaultDescriptor() protocol.ProviderSettings {
	return protocol.ProviderSettings{
		Kind: string(llm.KindOllama),
		Host: llm.DefaultOllamaHost,
		Port: llm.DefaultOllamaPort,
	}
}

// loadDescriptor reads the persisted provider descriptor. It reports false
// when no descriptor has been saved yet or the stored blob does not decode.
func (r *Router) loadDescriptor(ctx context.Context) (protocol.ProviderSettings, bool) {
	raw, err := r.settings.Get(ctx, settings.KeyProviderConfig)
	if err != nil {
		if !errors.Is(err, settings.ErrKeyNotFound) {
			r.logger.Warn("read provider config", "error", err)
		}
		return protocol.ProviderSettings{}, false
	}
	var desc protocol.ProviderSettings
	if err := json.Unmarshal(raw, &desc); err != nil {
		r.logger.Warn("decode provider config", "error", err)
		return protocol.ProviderSettings{}, false
	}
	return desc, true
}

// saveDescriptor persists the provider descriptor. The API key never goes
// into settings; it lives encrypted in the vault.
func (r *Router) saveDescriptor(ctx context.Context, desc protocol.ProviderSettings) error {
	desc.APIKey = ""
	raw, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	return r.settings.Set(ctx, settings.KeyProviderConfig, raw)
}

// resolveConfig turns the persisted descriptor into a runtime provider
// config. A missing descriptor, an unknown kind, and an unreadable secret
// all resolve to the local default; only UPDATE_CONFIG reports
// configuration problems to the caller.
func (r *Router) resolveConfig(ctx context.Context) llm.Config {
	desc, ok := r.loadDescriptor(ctx)
	if !ok {
		return llm.DefaultConfig()
	}
	switch llm.Kind(desc.Kind) {
	case llm.KindOllama:
		cfg := llm.Config{Kind: llm.KindOllama, Ollama: &llm.OllamaConfig{
			Host:  desc.Host,
			Port:  desc.Port,
			Model: desc.Model,
		}}
		// Empty host and port mean the defaults. Filling them here keeps
		// Config.Equal stable between a zero-value descriptor and
		// llm.DefaultConfig.
		if cfg.Ollama.Host == "" {
			cfg.Ollama.Host = llm.DefaultOllamaHost
		}
		if cfg.Ollama.Port == 0 {
			cfg.Ollama.Port = llm.DefaultOllamaPort
		}
		return cfg
	case llm.KindOpenRouter:
		key, ok, err := r.vault.Secret(ctx, desc.Kind)
		if err != nil {
			r.logger.Warn("api key unavailable, using local default", "error", err)
			return llm.DefaultConfig()
		}
		if !ok {
			r.logger.Warn("no api key stored for hosted provider, using local default")
			return llm.DefaultConfig()
		}
		return llm.Config{Kind: llm.KindOpenRouter, OpenRouter: &llm.OpenRouterConfig{
			APIKey: key,
			Model:  desc.Model,
		}}
	default:
		r.logger.Warn("unknown provider kind in settings, using local default", "kind", desc.Kind)
		return llm.DefaultConfig()
	}
}

// resolveProvider returns the adapter for the active configuration together
// with the model it is configured to use. Construction failures fall back
// to the local default before giving up.
func (r *Router) resolveProvider(ctx context.Context) (llm.Provider, string, error) {
	cfg := r.resolveConfig(ctx)
	p, err := r.registry.Get(&cfg)
	if err == nil {
		return p, cfg.Model(), nil
	}
	r.logger.Warn("provider construction failed, using local default", "kind", cfg.Kind, "error", err)
	fallback := llm.DefaultConfig()
	p, err = r.registry.Get(&fallback)
	if err != nil {
		return nil, "", llm.NewError(protocol.CodeInternalError, "no provider available", err)
	}
	return p, fallback.Model(), nil
}
