package passcracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lanrat/passcracker/sequence"
)

// DefaultQueueCapacity is the number of untested candidates buffered between
// the Supplier and the workers.
const DefaultQueueCapacity = 1024

// ErrDrained is returned by Supplier.Pop once production has stopped and
// every queued candidate has been handed out.
var ErrDrained = errors.New("supplier drained")

// Supplier owns the background goroutine that feeds candidates from a
// sequence iterator into a bounded queue. Sends block while the queue is
// full, so memory use does not depend on the size of the sequence.
type Supplier struct {
	it    *sequence.Iterator
	queue chan sequence.Value

	running  atomic.Bool
	produced atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSupplier creates a stopped supplier for a fresh iterator over seq.
// A capacity of zero or less selects DefaultQueueCapacity.
func NewSupplier(seq *sequence.Sequence, capacity int) *Supplier {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Supplier{
		it:     seq.Iterator(),
		queue:  make(chan sequence.Value, capacity),
		cancel: func() {},
		done:   make(chan struct{}),
	}
}

// Start launches production. It returns immediately; production ends when
// the iterator is exhausted, ctx is done or Stop is called. Only the first
// call has an effect.
func (s *Supplier) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.running.Store(true)
		go s.produce(ctx)
	})
}

func (s *Supplier) produce(ctx context.Context) {
	defer close(s.done)
	defer close(s.queue)
	defer s.running.Store(false)

	for {
		v, ok := s.it.Next()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		case s.queue <- v:
			s.produced.Add(1)
		}
	}
}

// Running reports whether the production goroutine is active.
func (s *Supplier) Running() bool {
	return s.running.Load()
}

// Produced returns the number of candidates pushed into the queue so far.
func (s *Supplier) Produced() uint64 {
	return s.produced.Load()
}

// Len returns the number of queued candidates.
func (s *Supplier) Len() int {
	return len(s.queue)
}

// Cap returns the queue capacity.
func (s *Supplier) Cap() int {
	return cap(s.queue)
}

// Done is closed once the production goroutine has returned and the queue is
// closed.
func (s *Supplier) Done() <-chan struct{} {
	return s.done
}

// Pop waits up to wait for the next candidate.
//
// It returns ok == false with a nil error when nothing arrived in time but
// production may still continue, ErrDrained when production has stopped and
// the queue is empty, and ctx.Err() when ctx is done.
func (s *Supplier) Pop(ctx context.Context, wait time.Duration) (sequence.Value, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case v, ok := <-s.queue:
		if !ok {
			return nil, false, ErrDrained
		}
		return v, true, nil
	case <-timer.C:
		return nil, false, nil
	}
}

// Stop cancels production, waits up to grace for the producer to return and
// discards every queued candidate so that no worker picks up stale work.
// Stop is safe to call more than once and on a supplier that never started.
func (s *Supplier) Stop(grace time.Duration) error {
	s.stopOnce.Do(func() {
		s.startOnce.Do(func() {
			// never started: nothing will close these for us
			close(s.queue)
			close(s.done)
		})
		s.cancel()
	})

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.drain()
		return fmt.Errorf("supplier did not stop within %s", grace)
	}
	s.drain()
	return nil
}

// drain empties the queue without blocking.
func (s *Supplier) drain() {
	for {
		select {
		case _, ok := <-s.queue:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
