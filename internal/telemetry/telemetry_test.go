package telemetry

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"

	"github.com/glossahq/glossa/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}

func TestTelemetry_ModuleInfo(t *testing.T) {
	t.Parallel()

	tel := &Telemetry{}
	info := tel.ModuleInfo()
	if info.ID != "telemetry.otel" {
		t.Fatalf("ID = %q", info.ID)
	}
	if _, ok := info.New().(*Telemetry); !ok {
		t.Fatal("New did not return a *Telemetry")
	}
}

func TestTelemetry_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	tel := &Telemetry{}
	if err := tel.Configure(mustYAMLNode(t, "{}")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if tel.config.Enabled {
		t.Fatal("enabled by default")
	}
	if tel.config.Endpoint != "localhost:4318" {
		t.Fatalf("endpoint = %q", tel.config.Endpoint)
	}
	if tel.config.SampleRatio != 1 {
		t.Fatalf("sample_ratio = %v", tel.config.SampleRatio)
	}
}

func TestTelemetry_ConfigureCustom(t *testing.T) {
	t.Parallel()

	tel := &Telemetry{}
	err := tel.Configure(mustYAMLNode(t, `
enabled: true
endpoint: collector.internal:4318
insecure: true
sample_ratio: 0.25
`))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if !tel.config.Enabled || !tel.config.Insecure {
		t.Fatal("flags not decoded")
	}
	if tel.config.Endpoint != "collector.internal:4318" {
		t.Fatalf("endpoint = %q", tel.config.Endpoint)
	}
	if tel.config.SampleRatio != 0.25 {
		t.Fatalf("sample_ratio = %v", tel.config.SampleRatio)
	}
}

func TestTelemetry_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ratio   float64
		wantErr bool
	}{
		{name: "full sampling", ratio: 1},
		{name: "partial sampling", ratio: 0.5},
		{name: "zero", ratio: 0, wantErr: true},
		{name: "negative", ratio: -0.1, wantErr: true},
		{name: "above one", ratio: 1.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tel := &Telemetry{config: Config{SampleRatio: tt.ratio}}
			err := tel.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestTelemetry_DisabledLeavesProviderUnset(t *testing.T) {
	t.Parallel()

	tel := &Telemetry{}
	if err := tel.Configure(mustYAMLNode(t, "{}")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := tel.Provision(core.NewAppContext(discardLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := tel.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if tel.provider != nil {
		t.Fatal("disabled module built a provider")
	}
	if err := tel.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// Not parallel: installs the global tracer provider.
func TestTelemetry_ExportsSpans(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			received.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	tel := &Telemetry{}
	err := tel.Configure(mustYAMLNode(t, `
enabled: true
endpoint: `+strings.TrimPrefix(srv.URL, "http://")+`
insecure: true
`))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := tel.Provision(core.NewAppContext(discardLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := tel.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "probe")
	span.End()

	// Shutdown flushes the batch processor.
	if err := tel.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if received.Load() == 0 {
		t.Fatal("no spans reached the collector")
	}
}
