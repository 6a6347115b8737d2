package query

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"
)

type options struct {
	timeout time.Duration
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Tracker holds the lifecycle of one fetch across invocations. A new invocation starts
// when the dependencies passed to Run change or when Refetch is called; it cancels the
// one in flight, and only the latest invocation may commit its result.
type Tracker[T any] struct {
	fetch   Fetcher[T]
	timeout time.Duration

	mu      sync.Mutex
	state   Result[T]
	stamp   uint64
	deps    []any
	started bool
	closed  bool
	cancel  context.CancelFunc
}

func NewTracker[T any](fetch Fetcher[T], opts ...Option) *Tracker[T] {
	o := &options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	return &Tracker[T]{
		fetch:   fetch,
		timeout: o.timeout,
		state:   Result[T]{Status: StatusIdle},
	}
}

// Run starts an invocation unless one already ran with equal deps. The returned channel
// is closed once that invocation settled, whether its result was committed or discarded.
func (t *Tracker[T]) Run(ctx context.Context, deps ...any) <-chan struct{} {
	t.mu.Lock()
	if t.closed || (t.started && reflect.DeepEqual(t.deps, deps)) {
		t.mu.Unlock()
		return closedChan()
	}
	t.deps = deps
	t.mu.Unlock()

	return t.start(ctx)
}

// Refetch starts a new invocation with the current deps.
func (t *Tracker[T]) Refetch(ctx context.Context) <-chan struct{} {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return closedChan()
	}

	return t.start(ctx)
}

func (t *Tracker[T]) Snapshot() Result[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close cancels the invocation in flight and discards its result.
func (t *Tracker[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.stamp++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Tracker[T]) start(parent context.Context) <-chan struct{} {
	runCtx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.stamp++
	stamp := t.stamp
	t.cancel = cancel
	t.started = true
	// previous data stays visible while loading, the previous error does not
	t.state = Result[T]{Status: StatusLoading, Data: t.state.Data}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		res := DoWithTimeout(runCtx, t.timeout, t.fetch)

		t.mu.Lock()
		defer t.mu.Unlock()

		if stamp != t.stamp {
			return
		}
		if runCtx.Err() != nil && !errors.Is(res.Err, ErrTimeout) {
			// cancelled by the caller, nothing newer will commit either
			t.state = Result[T]{Status: StatusIdle, Data: t.state.Data}
			t.cancel = nil
			return
		}

		t.state = res
		t.cancel = nil
	}()

	return done
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
