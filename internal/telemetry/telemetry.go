// Package telemetry exports traces over OTLP. The router starts a span per
// dispatched request; this module decides where those spans go.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/glossahq/glossa/internal/core"
)

func init() {
	core.RegisterModule(&Telemetry{})
}

// Telemetry installs the global tracer provider.
type Telemetry struct {
	config   Config
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (t *Telemetry) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otel",
		New: func() core.Module { return &Telemetry{} },
	}
}

// Configure implements core.Configurable.
func (t *Telemetry) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return err
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Telemetry) Provision(ctx *core.AppContext) error {
	t.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (t *Telemetry) Validate() error {
	if t.config.SampleRatio <= 0 || t.config.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio %v out of range (0, 1]", t.config.SampleRatio)
	}
	return nil
}

// Start implements core.Starter. Building the exporter does not dial the
// collector; a dead endpoint surfaces as export errors, not a failed start.
func (t *Telemetry) Start() error {
	if !t.config.Enabled {
		t.logger.Debug("telemetry disabled")
		return nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", "glossad")),
	)
	if err != nil {
		return fmt.Errorf("telemetry: build resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.config.Endpoint)}
	if t.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("telemetry: build exporter: %w", err)
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.config.SampleRatio))),
	)
	otel.SetTracerProvider(t.provider)

	t.logger.Info("telemetry exporting traces",
		"endpoint", t.config.Endpoint,
		"sample_ratio", t.config.SampleRatio,
	)
	return nil
}

// Stop implements core.Stopper. It flushes buffered spans before returning.
func (t *Telemetry) Stop(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
