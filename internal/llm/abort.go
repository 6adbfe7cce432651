package llm

import (
	"context"
	"sync"
)

// AbortController tracks the most recent in-flight operation of an adapter
// so Abort can cancel it out of band. The zero value is ready to use.
type AbortController struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Begin derives a cancellable context for one operation and installs it as
// the abort target. The returned done func disarms the target (unless a
// newer operation already replaced it) and releases the context. Callers
// must invoke done once the operation settles.
func (a *AbortController) Begin(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.cancel = cancel
	a.mu.Unlock()

	return opCtx, func() {
		a.mu.Lock()
		if a.gen == gen {
			a.cancel = nil
		}
		a.mu.Unlock()
		cancel()
	}
}

// Abort cancels the most recent operation begun on this controller.
// Idempotent; a no-op when nothing is in flight.
func (a *AbortController) Abort() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
