package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/secret"
	"github.com/glossahq/glossa/pkg/protocol"
)

// configView renders the redacted client-facing form of a descriptor. The
// stored secret is reduced to a presence flag.
func (r *Router) configView(ctx context.Context, desc protocol.ProviderSettings) protocol.ConfigView {
	return protocol.ConfigView{Provider: protocol.ProviderView{
		Kind:      desc.Kind,
		Host:      desc.Host,
		Port:      desc.Port,
		Model:     desc.Model,
		HasAPIKey: r.vault.HasSecret(ctx, desc.Kind),
	}}
}

func (r *Router) handleGetConfig(ctx context.Context) protocol.Response {
	desc, ok := r.loadDescriptor(ctx)
	if !ok {
		desc = defaultDescriptor()
	}
	return protocol.OK(r.configView(ctx, desc))
}

func (r *Router) handleUpdateConfig(ctx context.Context, payload json.RawMessage) protocol.Response {
	req, err := decode[protocol.UpdateConfigRequest](payload)
	if err != nil {
		return invalidPayload(err)
	}
	if req.Provider == nil {
		return protocol.Fail(protocol.CodeInvalidPayload, "provider settings are required")
	}
	desc := *req.Provider

	switch llm.Kind(desc.Kind) {
	case llm.KindOllama, llm.KindOpenRouter:
	default:
		return protocol.Fail(protocol.CodeInvalidPayload, fmt.Sprintf("unsupported provider kind %q", desc.Kind))
	}

	if desc.APIKey != "" {
		if err := r.vault.SetSecret(ctx, desc.Kind, desc.APIKey); err != nil {
			if errors.Is(err, secret.ErrEncryption) {
				return protocol.Fail(protocol.CodeEncryptionError, "could not encrypt api key")
			}
			return protocol.Fail(protocol.CodeInternalError, err.Error())
		}
		desc.APIKey = ""
	}

	// A hosted provider without a key, stored now or earlier, can never
	// serve a request. This is the one place a missing secret is an error.
	if llm.Kind(desc.Kind) == llm.KindOpenRouter && !r.vault.HasSecret(ctx, desc.Kind) {
		return protocol.Fail(protocol.CodeInvalidPayload, "an api key is required for the openrouter provider")
	}

	if err := r.saveDescriptor(ctx, desc); err != nil {
		return protocol.Fail(protocol.CodeInternalError, err.Error())
	}

	// Apply immediately: a bad host or port fails this call, not the next
	// request.
	cfg := r.resolveConfig(ctx)
	if _, err := r.registry.Get(&cfg); err != nil {
		return protocol.Fail(protocol.CodeInvalidPayload, err.Error())
	}

	return protocol.OK(r.configView(ctx, desc))
}
