// Package router dispatches decoded protocol envelopes to the capability
// that serves them: prompt-built completions, streaming generations,
// transformation management, provider configuration, and cancellation.
// Dispatch is stateless per request; every call resolves the active
// provider from settings before touching a backend.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/metrics"
	"github.com/glossahq/glossa/internal/prompt"
	"github.com/glossahq/glossa/internal/secret"
	"github.com/glossahq/glossa/internal/settings"
	"github.com/glossahq/glossa/internal/stream"
	"github.com/glossahq/glossa/pkg/protocol"
)

// Config assembles the router's collaborators.
type Config struct {
	Settings settings.Store
	Vault    *secret.Vault
	Registry *llm.Registry
	Streams  *stream.Manager
	Library  *prompt.Library  // defaults to a library over Settings
	Metrics  *metrics.Metrics // defaults to a private registry
	Logger   *slog.Logger     // defaults to slog.Default()
}

// Router routes request envelopes to handlers and wraps every outcome in
// the uniform response shape. It is safe for concurrent use.
type Router struct {
	settings settings.Store
	vault    *secret.Vault
	registry *llm.Registry
	streams  *stream.Manager
	library  *prompt.Library
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New builds a Router from cfg.
func New(cfg Config) (*Router, error) {
	if cfg.Settings == nil {
		return nil, errors.New("router: settings store is required")
	}
	if cfg.Vault == nil {
		return nil, errors.New("router: secret vault is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("router: provider registry is required")
	}
	if cfg.Streams == nil {
		return nil, errors.New("router: stream manager is required")
	}
	if cfg.Library == nil {
		cfg.Library = prompt.NewLibrary(cfg.Settings)
	}
	if cfg.Metrics == nil {
		m, err := metrics.New(nil)
		if err != nil {
			return nil, err
		}
		cfg.Metrics = m
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		settings: cfg.Settings,
		vault:    cfg.Vault,
		registry: cfg.Registry,
		streams:  cfg.Streams,
		library:  cfg.Library,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		tracer:   otel.Tracer("github.com/glossahq/glossa/internal/router"),
	}, nil
}

// Dispatch routes one request envelope and returns exactly one response.
// clientID identifies the session connection that should receive stream
// notifications; it is empty for transports that cannot receive them. A
// panicking handler is converted into an INTERNAL_ERROR response.
func (r *Router) Dispatch(ctx context.Context, clientID string, env protocol.Envelope) (resp protocol.Response) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "router.dispatch",
		trace.WithAttributes(attribute.String("message.type", string(env.Type))))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic", "type", env.Type, "panic", rec)
			resp = protocol.Fail(protocol.CodeInternalError, "internal error")
		}
		outcome := "success"
		if !resp.Success && resp.Error != nil {
			outcome = string(resp.Error.Code)
			span.SetStatus(codes.Error, resp.Error.Message)
		}
		r.metrics.Requests.WithLabelValues(string(env.Type), outcome).Inc()
		r.metrics.RequestDuration.WithLabelValues(string(env.Type)).Observe(time.Since(start).Seconds())
		r.logger.Debug("dispatch",
			"type", env.Type,
			"id", env.ID,
			"outcome", outcome,
			"duration", time.Since(start))
	}()

	return r.dispatch(ctx, clientID, env)
}

func (r *Router) dispatch(ctx context.Context, clientID string, env protocol.Envelope) protocol.Response {
	switch env.Type {
	case protocol.TypeTranslate:
		return r.handleTranslate(ctx, env.Payload)
	case protocol.TypeWritingAssist:
		return r.handleWritingAssist(ctx, env.Payload)
	case protocol.TypeGrammarCheck:
		return r.handleGrammarCheck(ctx, env.Payload)
	case protocol.TypeTransform:
		return r.handleTransform(ctx, env.Payload)
	case protocol.TypeExtractText:
		return r.handleExtractText(ctx, env.Payload)
	case protocol.TypeGenerateStream:
		return r.handleGenerateStream(ctx, clientID, env.Payload)
	case protocol.TypeTestConnection:
		return r.handleTestConnection(ctx)
	case protocol.TypeListModels:
		return r.handleListModels(ctx)
	case protocol.TypeListTransformations:
		return r.handleListTransformations(ctx)
	case protocol.TypeSaveTransformation:
		return r.handleSaveTransformation(ctx, env.Payload)
	case protocol.TypeDeleteTransformation:
		return r.handleDeleteTransformation(ctx, env.Payload)
	case protocol.TypeGetConfig:
		return r.handleGetConfig(ctx)
	case protocol.TypeUpdateConfig:
		return r.handleUpdateConfig(ctx, env.Payload)
	case protocol.TypeCancelRequest:
		return r.handleCancelRequest(env.Payload)
	default:
		return protocol.Fail(protocol.CodeUnknownMessage, "unknown message type "+string(env.Type))
	}
}

// decode unmarshals a request payload. An absent payload is invalid: every
// type that reaches decode requires one.
func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, errors.New("missing payload")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, err
	}
	return v, nil
}

// invalidPayload wraps a decode or validation failure.
func invalidPayload(err error) protocol.Response {
	return protocol.Fail(protocol.CodeInvalidPayload, "invalid payload: "+err.Error())
}

// failFrom converts an adapter error into a wire response, passing the
// adapter's classification through unchanged.
func failFrom(err error) protocol.Response {
	d := llm.Detail(err)
	return protocol.Fail(d.Code, d.Message)
}
