package queue

import (
	"context"
	"time"
)

// Task represents one queued mashup generation request.
type Task struct {
	ID        uint
	SessionID string
	Attempts  int
	QueuedAt  time.Time
}

// TaskQueue defines the interface for generation task queue operations.
type TaskQueue interface {
	// Enqueue adds a generation task for the session
	Enqueue(ctx context.Context, sessionID string) (uint, error)

	// Dequeue fetches the next available task using SELECT FOR UPDATE SKIP LOCKED
	Dequeue(ctx context.Context) (*Task, error)

	// MarkProcessing updates task status to in_progress
	MarkProcessing(ctx context.Context, taskID uint) error

	// MarkCompleted updates task status to completed
	MarkCompleted(ctx context.Context, taskID uint) error

	// MarkFailed updates task status to failed, requeueing while attempts remain
	MarkFailed(ctx context.Context, taskID uint, err error) error

	// GetQueueDepth returns the number of queued tasks
	GetQueueDepth(ctx context.Context) (int64, error)
}
