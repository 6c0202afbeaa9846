package passcracker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lanrat/passcracker/sequence"
)

const (
	// DefaultPollInterval bounds how long a worker waits on an empty queue
	// before it re-checks whether the search is still running.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultGrace is how long each shutdown stage may take before it is
	// abandoned.
	DefaultGrace = 5 * time.Second
)

var (
	// ErrExhausted is returned by Run when every candidate was tested without
	// a match.
	ErrExhausted = errors.New("password not found")
	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("search already run")
)

// Oracle decides whether a password is the one searched for. An error is a
// failure of the oracle itself, not a mismatch. Implementations must be safe
// for concurrent use.
type Oracle interface {
	Test(ctx context.Context, password string) (bool, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, password string) (bool, error)

// Test calls f.
func (f OracleFunc) Test(ctx context.Context, password string) (bool, error) {
	return f(ctx, password)
}

// Observer samples a running search. Observe runs on its own goroutine for
// the duration of Search.Run and must return promptly once ctx is done.
type Observer interface {
	Observe(ctx context.Context, s *Search) error
}

// Options tune a Search. Zero values select the defaults.
type Options struct {
	// Workers is the number of concurrent oracle callers, NumCPU+1 by default.
	Workers int
	// QueueCapacity bounds the supplier queue.
	QueueCapacity int
	PollInterval  time.Duration
	Grace         time.Duration
	// Limiter throttles oracle calls across all workers when set.
	Limiter *rate.Limiter
	Logger  zerolog.Logger
	Metrics *Metrics
	// OnFound is invoked at most once, with the matching password.
	OnFound   func(password string)
	Observers []Observer
}

// Result summarizes a finished search.
type Result struct {
	Found    bool
	Password string
	// Tested counts completed oracle calls, including the matching one.
	Tested uint64
	// Last is the last candidate confirmed not to match, nil if none was.
	Last    sequence.Value
	Elapsed time.Duration
}

// WorkerError records the failure that terminated one worker.
type WorkerError struct {
	Worker    int
	Candidate string
	Err       error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: testing %q: %v", e.Worker, e.Candidate, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// WorkerErrors aggregates the failures of every worker that stopped with an
// error in a search that found nothing.
type WorkerErrors struct {
	Errors []*WorkerError
}

func (e *WorkerErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d worker(s) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *WorkerErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}

// Search tests the candidates of a sequence against an oracle. A Search runs
// once.
type Search struct {
	seq    *sequence.Sequence
	oracle Oracle
	opts   Options
	log    zerolog.Logger

	ran     atomic.Bool
	started time.Time
	tested  atomic.Uint64
	last    atomic.Pointer[sequence.Value]

	foundOnce sync.Once
	password  string
	found     atomic.Bool

	failMu   sync.Mutex
	failures []*WorkerError
}

// NewSearch prepares a search over seq. Nothing runs until Run is called.
func NewSearch(seq *sequence.Sequence, oracle Oracle, opts Options) (*Search, error) {
	if seq == nil {
		return nil, errors.New("search requires a sequence")
	}
	if oracle == nil {
		return nil, errors.New("search requires an oracle")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU() + 1
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.OnFound == nil {
		opts.OnFound = func(string) {}
	}
	return &Search{
		seq:    seq,
		oracle: oracle,
		opts:   opts,
		log:    opts.Logger,
	}, nil
}

// Sequence returns the searched sequence.
func (s *Search) Sequence() *sequence.Sequence {
	return s.seq
}

// Logger returns the search logger.
func (s *Search) Logger() zerolog.Logger {
	return s.log
}

// Workers returns the number of workers Run starts.
func (s *Search) Workers() int {
	return s.opts.Workers
}

// LastTested returns a copy of the candidate most recently confirmed not to
// match, or nil. Workers overwrite it without coordination, so successive
// calls are not guaranteed to move forward in the sequence.
func (s *Search) LastTested() sequence.Value {
	v := s.last.Load()
	if v == nil {
		return nil
	}
	return v.Clone()
}

// Tested returns the number of completed oracle calls.
func (s *Search) Tested() uint64 {
	return s.tested.Load()
}

// Elapsed returns the time since Run started.
func (s *Search) Elapsed() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

// Progress measures the search from the last tested candidate.
func (s *Search) Progress() Progress {
	return Measure(s.seq, s.LastTested(), s.Elapsed())
}

// Run searches until a candidate matches, the sequence is exhausted, every
// worker has failed or ctx is done.
//
// The returned error is nil when the password was found, ctx.Err() when the
// caller stopped the search, a *WorkerErrors when workers failed and nothing
// matched, and ErrExhausted otherwise.
func (s *Search) Run(ctx context.Context) (*Result, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	s.started = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// observers outlive the workers so they can take a final sample
	observeCtx, stopObservers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopObservers()
	var observers errgroup.Group
	for _, o := range s.opts.Observers {
		observers.Go(func() error {
			return o.Observe(observeCtx, s)
		})
	}

	supplier := NewSupplier(s.seq, s.opts.QueueCapacity)
	supplier.Start(runCtx)

	s.log.Info().
		Int("workers", s.opts.Workers).
		Str("size", s.seq.Size().String()).
		Str("remaining", s.seq.Remaining().String()).
		Str("start", s.seq.Start().String()).
		Msg("search started")

	// workers never return errors so one failure does not cancel the others
	var workers errgroup.Group
	for i := range s.opts.Workers {
		workers.Go(func() error {
			s.work(runCtx, i, supplier, cancel)
			return nil
		})
	}
	workersDone := make(chan struct{})
	go func() {
		_ = workers.Wait()
		close(workersDone)
	}()

	select {
	case <-workersDone:
	case <-runCtx.Done():
	}

	// shutdown: producer, then workers, then observers
	if err := supplier.Stop(s.opts.Grace); err != nil {
		s.log.Warn().Err(err).Msg("abandoning supplier")
	}
	cancel()
	if !waitFor(workersDone, s.opts.Grace) {
		s.log.Warn().Dur("grace", s.opts.Grace).Msg("abandoning workers with oracle calls in flight")
	}
	stopObservers()
	observersDone := make(chan struct{})
	go func() {
		if err := observers.Wait(); err != nil {
			s.log.Warn().Err(err).Msg("observer failed")
		}
		close(observersDone)
	}()
	if !waitFor(observersDone, s.opts.Grace) {
		s.log.Warn().Dur("grace", s.opts.Grace).Msg("abandoning observers")
	}

	return s.result(ctx)
}

func (s *Search) result(ctx context.Context) (*Result, error) {
	res := &Result{
		Tested:  s.Tested(),
		Last:    s.LastTested(),
		Elapsed: s.Elapsed(),
	}
	if s.found.Load() {
		res.Found = true
		res.Password = s.password
		s.log.Info().Uint64("tested", res.Tested).Dur("elapsed", res.Elapsed).Msg("password found")
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		s.log.Info().Uint64("tested", res.Tested).Msg("search stopped")
		return res, err
	}

	s.failMu.Lock()
	failures := s.failures
	s.failMu.Unlock()
	if len(failures) > 0 {
		return res, &WorkerErrors{Errors: failures}
	}
	s.log.Info().Uint64("tested", res.Tested).Dur("elapsed", res.Elapsed).Msg("sequence exhausted")
	return res, ErrExhausted
}

// work is the worker loop: pop, render, test, publish.
func (s *Search) work(ctx context.Context, id int, supplier *Supplier, cancel context.CancelFunc) {
	log := s.log.With().Int(FieldWorker, id).Logger()
	log.Debug().Msg("worker started")
	defer log.Debug().Msg("worker stopped")

	for {
		v, ok, err := supplier.Pop(ctx, s.opts.PollInterval)
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		s.opts.Metrics.observeQueue(supplier.Len())

		password, err := s.seq.Render(v)
		if err != nil {
			s.fail(log, id, v.String(), err)
			return
		}
		if s.opts.Limiter != nil {
			if err := s.opts.Limiter.Wait(ctx); err != nil {
				return
			}
		}

		// an in-flight oracle call is allowed to finish after cancellation
		start := time.Now()
		match, err := s.oracle.Test(context.WithoutCancel(ctx), password)
		s.tested.Add(1)
		s.opts.Metrics.observeTest(time.Since(start), err)
		if err != nil {
			s.fail(log, id, password, err)
			return
		}
		if match {
			s.foundOnce.Do(func() {
				s.password = password
				s.found.Store(true)
				s.opts.Metrics.observeFound()
				cancel()
				log.Info().Str(FieldCandidate, password).Msg("password found")
				s.opts.OnFound(password)
			})
			return
		}
		s.last.Store(&v)
	}
}

func (s *Search) fail(log zerolog.Logger, id int, candidate string, err error) {
	log.Error().Err(err).Str(FieldCandidate, candidate).Msg("oracle failed, worker stopping")
	s.failMu.Lock()
	s.failures = append(s.failures, &WorkerError{Worker: id, Candidate: candidate, Err: err})
	s.failMu.Unlock()
}

// waitFor reports whether done closed within d.
func waitFor(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
