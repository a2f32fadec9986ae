// Package queue decouples post-acceptance work from the upload request
// path. The queue is an interface so a broker-backed implementation can
// replace the in-process one without touching the orchestrator; the bundled
// implementation is a bounded channel and offers no durability.
package queue

import (
	"context"
	"time"

	"server/internal/domain"
)

// Task is one unit of post-acceptance work for a stored image.
type Task struct {
	ImageID    string
	EnqueuedAt time.Time
}

// TaskQueue produces and consumes post-processing tasks.
type TaskQueue interface {
	// Enqueue hands a task to the queue without blocking the caller. A full
	// queue returns domain.ErrQueueFull.
	Enqueue(ctx context.Context, task Task) error
	// Dequeue blocks until a task is available or the context ends.
	Dequeue(ctx context.Context) (Task, error)
}

// MemoryQueue is the single-instance, in-process TaskQueue.
type MemoryQueue struct {
	tasks chan Task
}

// NewMemoryQueue builds a queue holding at most size pending tasks.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{tasks: make(chan Task, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return domain.ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Task, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}
