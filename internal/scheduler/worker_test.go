package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingExecutor struct {
	mu   sync.Mutex
	jobs []int64
	done chan struct{}
	want int
}

func newRecordingExecutor(want int) *recordingExecutor {
	return &recordingExecutor{done: make(chan struct{}), want: want}
}

func (r *recordingExecutor) ExecuteJob(_ context.Context, jobID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobID)
	if len(r.jobs) == r.want {
		close(r.done)
	}
	return nil
}

func TestWorkQueueExecutesEnqueuedJobs(t *testing.T) {
	executor := newRecordingExecutor(3)
	queue := NewWorkQueue(executor, WorkQueueConfig{Workers: 2, QueueSize: 4}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	for _, jobID := range []int64{1, 2, 3} {
		queue.Enqueue(jobID)
	}

	select {
	case <-executor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs not executed in time")
	}

	executor.mu.Lock()
	defer executor.mu.Unlock()
	seen := make(map[int64]bool)
	for _, jobID := range executor.jobs {
		seen[jobID] = true
	}
	for _, jobID := range []int64{1, 2, 3} {
		if !seen[jobID] {
			t.Fatalf("job %d never executed", jobID)
		}
	}
}

func TestWorkQueueParksOverflowUntilWorkersDrain(t *testing.T) {
	executor := newRecordingExecutor(2)
	queue := NewWorkQueue(executor, WorkQueueConfig{Workers: 1, QueueSize: 1}, nil)

	// No workers yet: the first job fills the buffer, the second parks.
	// An accepted job must survive until workers pick it up, however
	// short-lived the submitting caller was.
	queue.Enqueue(1)
	queue.Enqueue(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	select {
	case <-executor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("parked job never executed")
	}

	executor.mu.Lock()
	defer executor.mu.Unlock()
	if len(executor.jobs) != 2 {
		t.Fatalf("executed %d jobs, want 2", len(executor.jobs))
	}
}

func TestWorkQueueStopsOnCancel(t *testing.T) {
	executor := newRecordingExecutor(1)
	queue := NewWorkQueue(executor, WorkQueueConfig{Workers: 1, QueueSize: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	queue.Start(ctx)

	cancel()
	queue.StopWait(2 * time.Second)

	// Workers are gone; enqueueing must not block the caller.
	finished := make(chan struct{})
	go func() {
		queue.Enqueue(42)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked after shutdown")
	}
}
