// Package stream tracks in-flight generation requests and relays provider
// tokens to the originating client as discrete notifications. The daemon and
// the extension share no memory, so every token crosses the boundary as its
// own STREAM_TOKEN message, keyed by the request id the client chose.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/metrics"
	"github.com/glossahq/glossa/pkg/protocol"
)

// Sink receives the notifications produced while relaying a stream. The
// session hub implements it by pushing envelopes to the originating client;
// notifications for clients that are gone are dropped.
type Sink interface {
	Notify(clientID string, typ protocol.MessageType, payload any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(clientID string, typ protocol.MessageType, payload any)

// Notify calls f.
func (f SinkFunc) Notify(clientID string, typ protocol.MessageType, payload any) {
	f(clientID, typ, payload)
}

// Request is one tracked generation request. It exists from Begin until the
// relay completes, errors, or is cancelled.
type Request struct {
	ID       string
	ClientID string

	ctx      context.Context
	cancel   context.CancelFunc
	timer    *time.Timer
	timedOut atomic.Bool
}

// Context returns the context governing the provider call for this request.
// Cancelling the request (or hitting the deadline) cancels it.
func (r *Request) Context() context.Context { return r.ctx }

// Manager owns the active-request map and the per-token relay loop. Entries
// are in-memory only; a daemon restart forgets every in-flight stream.
type Manager struct {
	sink    Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	active map[string]*Request
}

// NewManager creates a Manager pushing notifications through sink. A zero
// timeout disables the per-request deadline, leaving CANCEL_REQUEST and
// client disconnect as the only ways to stop a stuck stream.
func NewManager(sink Sink, met *metrics.Metrics, timeout time.Duration, logger *slog.Logger) *Manager {
	if met == nil {
		met, _ = metrics.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sink:    sink,
		metrics: met,
		logger:  logger,
		timeout: timeout,
		active:  make(map[string]*Request),
	}
}

// Begin registers a request and derives the context its provider call must
// run under. It is called before the provider call so a cancel arriving
// immediately after acceptance cannot race past a not-yet-inserted entry.
// Every Begin must be balanced by Release, which Relay performs on all of
// its exit paths.
func (m *Manager) Begin(parent context.Context, id, clientID string) (*Request, error) {
	if id == "" {
		return nil, fmt.Errorf("stream: empty request id")
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Request{ID: id, ClientID: clientID, ctx: ctx, cancel: cancel}

	m.mu.Lock()
	if _, exists := m.active[id]; exists {
		m.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("stream: request %q already active", id)
	}
	if m.timeout > 0 {
		r.timer = time.AfterFunc(m.timeout, func() {
			r.timedOut.Store(true)
			r.cancel()
		})
	}
	m.active[id] = r
	m.mu.Unlock()

	m.metrics.ActiveStreams.Inc()
	return r, nil
}

// Release removes the request from the active map, stops its timer, and
// cancels its context. Calling it for an id that is already gone is a no-op.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	r, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
	m.metrics.ActiveStreams.Dec()
}

// Cancel aborts the stream with the given id: it fires the request's cancel
// func and removes the entry, in that order. Unknown ids report false and
// have no effect.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	r, ok := m.active[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	r.cancel()
	m.Release(id)
	return true
}

// Active returns the number of in-flight streams.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Relay forwards tokens for r until the stream ends, emitting exactly one
// terminal notification: STREAM_COMPLETE, STREAM_ERROR, or STREAM_CANCELLED.
// Cancellation is checked before each token is forwarded; once it is
// observed, no further tokens reach the client. The request entry is
// released on every exit path.
func (m *Manager) Relay(r *Request, tokens <-chan llm.StreamToken) {
	// Draining on the way out lets an aborted producer deliver its terminal
	// element and close the channel instead of blocking forever.
	defer func() {
		for range tokens {
		}
	}()
	defer m.Release(r.ID)

	for {
		select {
		case <-r.ctx.Done():
			m.sendCancelled(r)
			return
		case tok, ok := <-tokens:
			if !ok {
				m.logger.Warn("stream closed without a terminal token", "request_id", r.ID)
				m.sendError(r, llm.NewError(protocol.CodeUnknown, "stream ended unexpectedly", nil))
				return
			}
			if r.ctx.Err() != nil {
				m.sendCancelled(r)
				return
			}
			switch {
			case tok.Err != nil:
				if llm.IsCancelled(tok.Err) {
					m.sendCancelled(r)
				} else {
					m.sendError(r, tok.Err)
				}
				return
			case tok.Done:
				// A terminal token may still carry trailing content.
				if tok.Content != "" {
					m.sendToken(r, tok.Content)
				}
				m.sink.Notify(r.ClientID, protocol.TypeStreamComplete,
					protocol.StreamCompletePayload{RequestID: r.ID})
				return
			default:
				m.sendToken(r, tok.Content)
			}
		}
	}
}

func (m *Manager) sendToken(r *Request, content string) {
	m.metrics.StreamTokens.Inc()
	m.sink.Notify(r.ClientID, protocol.TypeStreamToken,
		protocol.StreamTokenPayload{RequestID: r.ID, Token: content})
}

// sendCancelled reports a cancelled stream, or a TIMEOUT error when the
// cancellation came from the per-request deadline rather than the user.
func (m *Manager) sendCancelled(r *Request) {
	if r.timedOut.Load() {
		m.sendError(r, llm.NewError(protocol.CodeTimeout, "generation timed out", nil))
		return
	}
	m.sink.Notify(r.ClientID, protocol.TypeStreamCancelled,
		protocol.StreamCancelledPayload{RequestID: r.ID})
}

func (m *Manager) sendError(r *Request, err error) {
	m.sink.Notify(r.ClientID, protocol.TypeStreamError,
		protocol.StreamErrorPayload{RequestID: r.ID, Error: llm.Detail(err)})
}
