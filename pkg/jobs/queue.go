// Package jobs runs background work, such as code delivery, on a bounded
// goroutine pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when the buffer cannot take another job.
var ErrQueueFull = errors.New("queue full")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ResultFunc observes the final outcome of a job, after retries.
type ResultFunc func(Job, error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	OnResult   ResultFunc
}

// Queue is an in-memory job dispatcher. Failed jobs are retried by the same
// worker with a linear backoff, so a retry never competes for buffer space.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call more than once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels workers and waits for them to exit. Jobs still buffered are
// dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("dropped", len(q.jobs)))
}

// Enqueue pushes a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Pending reports the number of buffered jobs.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(workerID, job)
		}
	}
}

func (q *Queue) run(workerID int, job Job) {
	var err error
	for {
		err = q.handler(q.ctx, job)
		if err == nil || job.Attempt >= q.cfg.MaxRetries {
			break
		}
		job.Attempt++
		q.logger.Warn("job failed, retrying",
			zap.Int("worker", workerID),
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))

		timer := time.NewTimer(q.cfg.RetryDelay * time.Duration(job.Attempt))
		select {
		case <-q.ctx.Done():
			timer.Stop()
			q.finish(job, q.ctx.Err())
			return
		case <-timer.C:
		}
	}

	if err != nil {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
	}
	q.finish(job, err)
}

func (q *Queue) finish(job Job, err error) {
	if q.cfg.OnResult != nil {
		q.cfg.OnResult(job, err)
	}
}
