// Package tasks holds the background task queue and worker that run the
// ingestion and FAQ generation flows outside the request path.
package tasks

import (
	"context"
	"time"
)

// TaskType identifies what the worker should do.
type TaskType string

const (
	TaskTypeIngest       TaskType = "ingest"
	TaskTypeGenerateFAQs TaskType = "generate-faqs"
)

// Task represents a unit of work for the worker.
type Task struct {
	ID        string
	Type      TaskType
	SessionID string

	// For ingest tasks.
	InputType  string
	InputValue string

	// Uploaded PDFs travel as bytes; the worker spools them to a temp
	// file for the extractor. Filename preserves the upload name for
	// collection naming.
	PDF      []byte
	Filename string

	EnqueuedAt time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for
	// cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is
	// available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}

// MemoryQueue is a Queue implementation backed by a buffered channel.
// It is safe for concurrent use.
type MemoryQueue struct {
	ch chan Task
}

// NewMemoryQueue creates a new queue with the given capacity. For tests
// and small deployments a modest capacity (e.g. 1024) is fine.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		ch: make(chan Task, capacity),
	}
}

var _ Queue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Enqueue(ctx context.Context, t Task) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case t := <-q.ch:
		return &t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
