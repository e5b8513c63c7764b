// Package worker runs the bounded pool that drains scoring jobs.
//
// Feature extraction and scoring are pure and independent per track, so
// workers need no coordination beyond the queue; the score store is the
// only shared write path.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/scoutbeat/scoutbeat/internal/adapters/mq/queue"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/pkg/logger"
	"github.com/scoutbeat/scoutbeat/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Scorer computes a full score record from a snapshot. Implementations must
// be safe for concurrent use.
type Scorer interface {
	ComputeScore(ctx context.Context, snap model.Snapshot, scoreType model.ScoreType) (model.ScoreRecord, error)
}

// Appender persists computed records.
type Appender interface {
	Append(ctx context.Context, rec model.ScoreRecord) (string, error)
}

// Worker processes scoring jobs until stopped.
type Worker struct {
	queue    queue.Queue
	scorer   Scorer
	appender Appender
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a worker with configuration options.
func NewWorker(q queue.Queue, scorer Scorer, appender Appender, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		scorer:   scorer,
		appender: appender,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop until ctx is canceled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "scoring job failed",
					logger.String("jobID", job.JobID),
					logger.String("track", job.Snapshot.TrackID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight job.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process scores one job and appends the result.
func (w *Worker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
	}()

	rec, err := w.scorer.ComputeScore(ctx, job.Snapshot, job.ScoreType)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("score track %s: %w", job.Snapshot.TrackID, err)
	}

	if _, err := w.appender.Append(ctx, rec); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("append score for track %s: %w", job.Snapshot.TrackID, err)
	}

	w.logger.Debug(ctx, "scored track",
		logger.String("track", rec.TrackID),
		logger.String("scoreType", string(rec.Type)),
		logger.Float64("value", rec.Value),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker
	queue   queue.Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount falls back to
// the number of CPUs.
func NewPool(workerCount int, q queue.Queue, scorer Scorer, appender Appender) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
		if workerCount < 1 {
			workerCount = defaultWorkerCount
		}
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(q, scorer, appender, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerActive(workerCount)

	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerActive(0)
	return nil
}
