// Package worker drains the persistence queue into the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/startupforworld/coach/internal/adapters/mq/queue"
	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 50 * time.Millisecond
	poolShutdownTimeout = 30 * time.Second
)

// ErrUnknownJob is returned for a job kind no handler exists for.
var ErrUnknownJob = errors.New("unknown job kind")

// Job is what workers read off the queue.
type Job = queue.Job

// Persister is the part of the store workers write to.
type Persister interface {
	SaveClinicalRecord(ctx context.Context, rec model.ClinicalRecord) error
	UpdateProtocol(ctx context.Context, recordID string, protocol []recommend.ProtocolEntry) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	persister Persister
	name      string

	maxAttempts int
	backoff     time.Duration

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Persister, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		persister:   p,
		name:        "worker",
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultRetryBackoff,
		processed:   new(atomic.Int64),
		failed:      new(atomic.Int64),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.failed.Add(1)
				w.logger.Error(ctx, "persistence job failed",
					logger.String("job_id", j.ID),
					logger.String("kind", string(j.Kind)),
					logger.Error(err),
				)
				continue
			}
			w.processed.Add(1)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job, retrying with a linear backoff.
func (w *InMemoryWorker) process(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = w.apply(ctx, j)
		if err == nil || errors.Is(err, ErrUnknownJob) {
			break
		}
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * w.backoff):
		}
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		metrics.RecordErrorByComponent("worker", string(j.Kind))
	}
	metrics.RecordWorkerJob(string(j.Kind), outcome, float64(time.Since(start).Milliseconds()))
	return err
}

func (w *InMemoryWorker) apply(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam
	switch j.Kind {
	case model.JobSaveClinicalRecord:
		if j.Record == nil {
			return fmt.Errorf("%w: %s without record", ErrUnknownJob, j.Kind)
		}
		return w.persister.SaveClinicalRecord(ctx, *j.Record)
	case model.JobSaveProtocol:
		return w.persister.UpdateProtocol(ctx, j.RecordID, j.Protocol)
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, j.Kind)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed *atomic.Int64
	failed    *atomic.Int64
	logger    logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, p Persister, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		logger:    logger.NewNop(),
	}
	probe := &InMemoryWorker{logger: pool.logger}
	for _, opt := range opts {
		opt(probe)
	}
	pool.logger = probe.logger.Named("worker-pool")

	for i := range workerCount {
		wopts := append(append([]Option{}, opts...),
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(pool.processed, pool.failed),
		)
		pool.workers[i] = NewInMemoryWorker(q, p, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs that succeeded.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of jobs that exhausted their attempts.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
