// Package llmtest provides test doubles for the llm package.
package llmtest

import (
	"context"
	"sync"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

// MockProvider is a configurable test double for llm.Provider. Set the Func
// fields to control behavior; unset funcs return zero values. All methods
// are safe for concurrent use.
type MockProvider struct {
	TestConnectionFunc func(ctx context.Context) error
	ListModelsFunc     func(ctx context.Context) ([]protocol.ModelInfo, error)
	CompleteFunc       func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)
	StreamFunc         func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamToken, error)
	ReconfigureFunc    func(cfg llm.Config) error
	KindValue          llm.Kind

	mu                  sync.Mutex
	TestConnectionCalls int
	ListModelsCalls     int
	CompleteCalls       int
	StreamCalls         int
	AbortCalls          int
	ReconfigureCalls    int
	LastRequest         llm.CompletionRequest
	LastConfig          llm.Config
}

// Interface guard.
var _ llm.Provider = (*MockProvider)(nil)

// TestConnection delegates to TestConnectionFunc and tracks the call.
func (m *MockProvider) TestConnection(ctx context.Context) error {
	m.mu.Lock()
	m.TestConnectionCalls++
	m.mu.Unlock()
	if m.TestConnectionFunc == nil {
		return nil
	}
	return m.TestConnectionFunc(ctx)
}

// ListModels delegates to ListModelsFunc and tracks the call.
func (m *MockProvider) ListModels(ctx context.Context) ([]protocol.ModelInfo, error) {
	m.mu.Lock()
	m.ListModelsCalls++
	m.mu.Unlock()
	if m.ListModelsFunc == nil {
		return nil, nil
	}
	return m.ListModelsFunc(ctx)
}

// Complete delegates to CompleteFunc and tracks the call and request.
func (m *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastRequest = req
	m.mu.Unlock()
	if m.CompleteFunc == nil {
		return llm.CompletionResponse{}, nil
	}
	return m.CompleteFunc(ctx, req)
}

// Stream delegates to StreamFunc and tracks the call and request.
func (m *MockProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamToken, error) {
	m.mu.Lock()
	m.StreamCalls++
	m.LastRequest = req
	m.mu.Unlock()
	if m.StreamFunc == nil {
		return Tokens(), nil
	}
	return m.StreamFunc(ctx, req)
}

// Abort tracks the call.
func (m *MockProvider) Abort() {
	m.mu.Lock()
	m.AbortCalls++
	m.mu.Unlock()
}

// Reconfigure tracks the call and config, then delegates to ReconfigureFunc.
func (m *MockProvider) Reconfigure(cfg llm.Config) error {
	m.mu.Lock()
	m.ReconfigureCalls++
	m.LastConfig = cfg
	m.mu.Unlock()
	if m.ReconfigureFunc == nil {
		return nil
	}
	return m.ReconfigureFunc(cfg)
}

// Kind returns KindValue.
func (m *MockProvider) Kind() llm.Kind {
	return m.KindValue
}

// Calls returns a snapshot of the per-method call counts, keyed by method name.
func (m *MockProvider) Calls() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"TestConnection": m.TestConnectionCalls,
		"ListModels":     m.ListModelsCalls,
		"Complete":       m.CompleteCalls,
		"Stream":         m.StreamCalls,
		"Abort":          m.AbortCalls,
		"Reconfigure":    m.ReconfigureCalls,
	}
}

// Tokens builds a closed, pre-filled token channel. The caller appends the
// terminal element itself; use TextStream for the common content-then-done
// shape.
func Tokens(tokens ...llm.StreamToken) <-chan llm.StreamToken {
	ch := make(chan llm.StreamToken, len(tokens))
	for _, tok := range tokens {
		ch <- tok
	}
	close(ch)
	return ch
}

// TextStream builds a stream that yields each part as a content token and
// terminates with an empty done token.
func TextStream(parts ...string) <-chan llm.StreamToken {
	tokens := make([]llm.StreamToken, 0, len(parts)+1)
	for _, p := range parts {
		tokens = append(tokens, llm.StreamToken{Content: p})
	}
	tokens = append(tokens, llm.StreamToken{Done: true})
	return Tokens(tokens...)
}

// ErrStream builds a stream that yields the given parts and then fails
// in-band with err.
func ErrStream(err error, parts ...string) <-chan llm.StreamToken {
	tokens := make([]llm.StreamToken, 0, len(parts)+1)
	for _, p := range parts {
		tokens = append(tokens, llm.StreamToken{Content: p})
	}
	tokens = append(tokens, llm.StreamToken{Err: err})
	return Tokens(tokens...)
}
