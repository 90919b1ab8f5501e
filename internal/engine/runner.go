package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// ErrRunnerStopped is returned by Runner.Submit once the runner no longer
// accepts jobs.
var ErrRunnerStopped = errors.New("runner_stopped")

// SubmitResult is the outcome of one submit handled by a Runner.
type SubmitResult struct {
	Trades  []*domain.Trade
	Resting *domain.Order
	Err     error
}

type submitJob struct {
	req   domain.OrderRequest
	reply chan SubmitResult
}

// Runner feeds submits to an Engine from a single goroutine. Callers on
// any goroutine enqueue requests onto a bounded channel and wait for the
// reply; the engine sees them strictly in arrival order.
type Runner struct {
	engine *Engine
	jobs   chan submitJob
	quit   chan struct{}
	done   chan struct{}
	logger *slog.Logger

	mu      sync.RWMutex
	stopped bool
	started bool
}

// NewRunner creates a runner with a queue of queueSize pending submits.
// A nil logger defaults to slog.Default().
func NewRunner(e *Engine, queueSize int, logger *slog.Logger) *Runner {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine: e,
		jobs:   make(chan submitJob, queueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Engine returns the engine driven by the runner.
func (r *Runner) Engine() *Engine {
	return r.engine
}

// Start launches the consumer goroutine. When ctx is cancelled the runner
// stops accepting new jobs, finishes every job already queued, and closes
// Done. Start must be called at most once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		panic("engine: runner started twice")
	}
	r.started = true
	r.mu.Unlock()

	go func() {
		defer close(r.done)

		for {
			select {
			case <-ctx.Done():
				r.drain()
				return
			case job := <-r.jobs:
				r.run(job)
			}
		}
	}()
}

// drain closes the queue to new submits and runs what is already in it.
// Closing quit first releases submitters blocked on a full queue so the
// write lock can be taken.
func (r *Runner) drain() {
	close(r.quit)
	r.mu.Lock()
	r.stopped = true
	close(r.jobs)
	r.mu.Unlock()

	pending := 0
	for job := range r.jobs {
		r.run(job)
		pending++
	}
	r.logger.Info("runner stopped", slog.Int("drained_jobs", pending))
}

func (r *Runner) run(job submitJob) {
	trades, resting, err := r.engine.Submit(job.req)
	// reply is buffered so an abandoned caller never blocks the runner.
	job.reply <- SubmitResult{Trades: trades, Resting: resting, Err: err}
}

// Submit enqueues req and waits for its result. ctx only bounds the time
// spent waiting for queue space: once the job is queued it runs to
// completion and Submit waits for it.
func (r *Runner) Submit(ctx context.Context, req domain.OrderRequest) (SubmitResult, error) {
	job := submitJob{req: req, reply: make(chan SubmitResult, 1)}

	r.mu.RLock()
	if r.stopped {
		r.mu.RUnlock()
		return SubmitResult{}, ErrRunnerStopped
	}
	select {
	case r.jobs <- job:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return SubmitResult{}, ctx.Err()
	case <-r.quit:
		r.mu.RUnlock()
		return SubmitResult{}, ErrRunnerStopped
	}

	return <-job.reply, nil
}

// Done is closed after the runner has drained its queue and exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
