package llm

import (
	"context"

	"github.com/glossahq/glossa/pkg/protocol"
)

// Provider is the capability surface for one model backend. Concrete
// implementations live in separate packages (e.g. provider.ollama) and also
// implement core.Module so the registry can construct them by kind.
//
// Providers serialize to one in-flight operation per instance by
// construction of the calling code; Abort cancels whatever is currently in
// flight. Every returned error is an *Error.
type Provider interface {
	// TestConnection issues the cheapest request that proves reachability
	// and, for hosted backends, that the credentials are accepted.
	// It never mutates state.
	TestConnection(ctx context.Context) error

	// ListModels enumerates locally available models. Backends with an
	// unenumerable catalog return an empty successful list; their callers
	// accept free-form model identifiers instead.
	ListModels(ctx context.Context) ([]protocol.ModelInfo, error)

	// Complete performs a single non-streaming round trip.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream opens a streaming completion. Connection errors are returned
	// directly; mid-stream failures travel in-band via StreamToken.Err.
	// The channel carries exactly one terminal element and is then closed.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamToken, error)

	// Abort cancels the most recent in-flight operation on this instance.
	// Idempotent; safe to call when nothing is in flight.
	Abort()

	// Reconfigure applies new connection/auth parameters in place. The
	// config's kind must match the provider's own kind.
	Reconfigure(cfg Config) error

	// Kind identifies the backend implementation.
	Kind() Kind
}
