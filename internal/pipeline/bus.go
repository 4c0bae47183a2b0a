package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/observability"
)

// Handler processes an Event; return error to signal failure.
type Handler func(ctx context.Context, e Event) error

// Bus is a simple synchronous pub/sub event bus. It carries run events to
// the journal, metrics and notification sinks.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

func NewBus() *Bus { return &Bus{subscribers: map[string][]Handler{}} }

// Subscribe registers a handler for a given event name.
func (b *Bus) Subscribe(event string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], h)
	b.mu.Unlock()
}

// Publish delivers an event to all handlers synchronously, in subscription
// order. A failing handler does not stop delivery to the others; all
// failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	hs := append([]Handler(nil), b.subscribers[e.Name()]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// emit publishes e and logs handler failures. Sinks never change the
// outcome of a run.
func (b *Bus) emit(ctx context.Context, e Event) {
	if err := b.Publish(ctx, e); err != nil {
		observability.WarnContext(ctx, "Run event handler failed", logfields.Error(err))
	}
}

// buildEvents turns dispatcher callbacks into BuildFinished events.
type buildEvents struct {
	bus   *Bus
	runID string
}

func (o buildEvents) BuildFinished(ctx context.Context, b *builder.Build, elapsed time.Duration, err error) {
	o.bus.emit(ctx, BuildFinished{RunID: o.runID, Build: b, Elapsed: elapsed, Err: err})
}
