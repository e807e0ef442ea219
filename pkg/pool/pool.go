package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// Pool is a bounded pool of expensive resources such as logged-in shell
// sessions. At most max resources exist at any time; Acquire blocks while
// all of them are checked out.
//
// Unlike sync.Pool, idle resources are never dropped behind the caller's
// back: they stay open until Release discards them or Close is called.
type Pool[T any] struct {
	open  func(ctx context.Context) (T, error)
	close func(T) error

	// slots holds one token per resource in existence or being opened
	slots chan struct{}
	idle  chan T

	mu     sync.Mutex
	closed bool

	stats struct {
		created   int64
		reused    int64
		discarded int64
		inUse     int64
	}
}

// Stats is a snapshot of pool counters
type Stats struct {
	Created   int64 `json:"created"`
	Reused    int64 `json:"reused"`
	Discarded int64 `json:"discarded"`
	InUse     int64 `json:"in_use"`
	Idle      int   `json:"idle"`
}

// New creates a pool holding at most max resources. open creates a
// resource on demand and close disposes of one.
func New[T any](max int, open func(ctx context.Context) (T, error), close func(T) error) *Pool[T] {
	if max <= 0 {
		max = 1
	}
	return &Pool[T]{
		open:  open,
		close: close,
		slots: make(chan struct{}, max),
		idle:  make(chan T, max),
	}
}

// Acquire returns an idle resource or opens a new one. It waits for a free
// slot until ctx is done.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	if p.isClosed() {
		return zero, errors.New(errors.ErrorTypeConnection, "pool is closed")
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return zero, errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "timed out waiting for a pooled session")
	}

	select {
	case r := <-p.idle:
		atomic.AddInt64(&p.stats.reused, 1)
		atomic.AddInt64(&p.stats.inUse, 1)
		return r, nil
	default:
	}

	r, err := p.open(ctx)
	if err != nil {
		<-p.slots
		return zero, err
	}
	atomic.AddInt64(&p.stats.created, 1)
	atomic.AddInt64(&p.stats.inUse, 1)
	return r, nil
}

// Release hands r back. Unhealthy resources, and any resource released
// after Close, are closed instead of kept.
func (p *Pool[T]) Release(r T, healthy bool) error {
	atomic.AddInt64(&p.stats.inUse, -1)
	defer func() { <-p.slots }()

	p.mu.Lock()
	keep := healthy && !p.closed
	if keep {
		select {
		case p.idle <- r:
		default:
			keep = false
		}
	}
	p.mu.Unlock()

	if keep {
		return nil
	}
	atomic.AddInt64(&p.stats.discarded, 1)
	return p.close(r)
}

// Close closes every idle resource. Resources still checked out are closed
// when they are released.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var err error
	for {
		select {
		case r := <-p.idle:
			err = multierr.Append(err, p.close(r))
		default:
			return err
		}
	}
}

// Stats returns the current counters
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Created:   atomic.LoadInt64(&p.stats.created),
		Reused:    atomic.LoadInt64(&p.stats.reused),
		Discarded: atomic.LoadInt64(&p.stats.discarded),
		InUse:     atomic.LoadInt64(&p.stats.inUse),
		Idle:      len(p.idle),
	}
}

func (p *Pool[T]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
