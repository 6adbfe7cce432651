package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/pkg/protocol"
)

type dispatchCall struct {
	clientID string
	env      protocol.Envelope
}

// stubDispatcher records every dispatch and replies with a fixed response.
type stubDispatcher struct {
	mu       sync.Mutex
	response protocol.Response
	calls    []dispatchCall
}

func (d *stubDispatcher) Dispatch(_ context.Context, clientID string, env protocol.Envelope) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{clientID: clientID, env: env})
	return d.response
}

func (d *stubDispatcher) all() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dispatchCall, len(d.calls))
	copy(out, d.calls)
	return out
}

// fakeHub satisfies SessionHub without sockets.
type fakeHub struct {
	n      int
	closed bool
}

func (f *fakeHub) HandleSession(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

func (f *fakeHub) Len() int { return f.n }

func (f *fakeHub) Close() { f.closed = true }

type fakeProviders struct {
	kind llm.Kind
}

func (f fakeProviders) CurrentKind() llm.Kind { return f.kind }

type fakeProbe struct {
	ok bool
	at time.Time
}

func (f fakeProbe) LastProbe() (bool, time.Time) { return f.ok, f.at }
