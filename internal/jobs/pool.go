// Package jobs runs background work on a fixed set of in-process workers.
// Webhook handlers enqueue and return immediately; jobs must be idempotent
// because a job may be enqueued again before or after it has run.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Pool errors.
var (
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job pool is shut down")
)

// Observer is told about every finished job.
type Observer interface {
	JobFinished(kind string, err error)
}

// Func is the body of a job.
type Func func(ctx context.Context) error

// Job is one unit of queued work.
type Job struct {
	ID   string
	Kind string
	// Key identifies the work for deduplication, e.g. "refresh_device:42".
	// A job whose key is already queued and not yet started is not queued
	// again. Empty keys are never deduplicated.
	Key string
	Run Func
}

// Pool is a bounded queue drained by a fixed number of workers.
type Pool struct {
	workers  int
	queue    chan Job
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]string // key -> job id
	closed  bool

	wg     conc.WaitGroup
	cancel context.CancelFunc
}

// Config sizes a Pool.
type Config struct {
	Workers   int
	QueueSize int
	// JobTimeout bounds each job; zero means no bound.
	JobTimeout time.Duration
	Logger     *slog.Logger
	Observer   Observer
}

// NewPool returns a pool. Call Start to begin processing.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{
		workers:  cfg.Workers,
		queue:    make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger,
		observer: cfg.Observer,
		timeout:  cfg.JobTimeout,
		pending:  make(map[string]string),
	}
}

// Start launches the workers. Jobs run with a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for range p.workers {
		p.wg.Go(func() { p.work(ctx) })
	}
}

// Enqueue queues fn and returns the job id. It never blocks: a full queue
// returns ErrQueueFull.
func (p *Pool) Enqueue(kind, key string, fn Func) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrClosed
	}
	if key != "" {
		if id, ok := p.pending[key]; ok {
			return id, nil
		}
	}
	job := Job{ID: uuid.NewString(), Kind: kind, Key: key, Run: fn}
	select {
	case p.queue <- job:
	default:
		return "", fmt.Errorf("%s: %w", kind, ErrQueueFull)
	}
	if key != "" {
		p.pending[key] = job.ID
	}
	p.logger.Debug("job queued", "job_id", job.ID, "kind", kind, "key", key)
	return job.ID, nil
}

// Pending returns the number of queued jobs not yet started.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Shutdown stops accepting jobs and waits for queued jobs to finish. If ctx
// ends first, running jobs are cancelled and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (p *Pool) work(ctx context.Context) {
	for job := range p.queue {
		p.run(ctx, job)
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	if job.Key != "" {
		p.mu.Lock()
		if p.pending[job.Key] == job.ID {
			delete(p.pending, job.Key)
		}
		p.mu.Unlock()
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = job.Run(ctx) })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}

	log := p.logger.With("job_id", job.ID, "kind", job.Kind, "duration", time.Since(start))
	if err != nil {
		log.Error("job failed", "error", err)
	} else {
		log.Debug("job done")
	}
	if p.observer != nil {
		p.observer.JobFinished(job.Kind, err)
	}
}
