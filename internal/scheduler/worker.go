package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobExecutor runs one scrape job to completion.
type JobExecutor interface {
	ExecuteJob(ctx context.Context, jobID int64) error
}

// WorkQueue dispatches accepted job ids to a small pool of workers so the
// HTTP handler can return immediately after persisting the job.
type WorkQueue struct {
	executor JobExecutor
	queue    chan int64
	workers  int
	logger   *slog.Logger
	wg       sync.WaitGroup
	stopCh   chan struct{}
}

type WorkQueueConfig struct {
	Workers   int
	QueueSize int
}

func NewWorkQueue(executor JobExecutor, cfg WorkQueueConfig, logger *slog.Logger) *WorkQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkQueue{
		executor: executor,
		queue:    make(chan int64, cfg.QueueSize),
		workers:  cfg.Workers,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (q *WorkQueue) Start(ctx context.Context) {
	q.logger.Info("work queue started", "workers", q.workers, "capacity", cap(q.queue))

	for index := 0; index < q.workers; index++ {
		q.wg.Add(1)
		go q.worker(ctx, index)
	}

	go func() {
		q.wg.Wait()
		close(q.stopCh)
	}()
}

func (q *WorkQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("worker stopped", "worker", id)
			return
		case jobID := <-q.queue:
			if err := q.executor.ExecuteJob(ctx, jobID); err != nil {
				q.logger.Warn("job execution failed", "worker", id, "job_id", jobID, "error", err)
			}
		}
	}
}

// Enqueue hands a job id to the pool. When the queue is full the send is
// parked on a goroutine instead of blocking the caller. The parked send is
// tied to the queue's own lifetime, never the caller's: a job accepted
// here stays deliverable until the workers shut down.
func (q *WorkQueue) Enqueue(jobID int64) {
	select {
	case q.queue <- jobID:
		return
	default:
	}

	q.logger.Warn("work queue full, parking job", "job_id", jobID)
	go func() {
		select {
		case q.queue <- jobID:
		case <-q.stopCh:
			q.logger.Warn("dropping parked job, queue stopped", "job_id", jobID)
		}
	}()
}

func (q *WorkQueue) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-q.stopCh:
	case <-time.After(timeout):
	}
}
