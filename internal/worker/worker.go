package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mashup-server/internal/infrastructure/metrics"
	"mashup-server/internal/infrastructure/queue"
)

// Generator is the task executor the workers drive; in production it is the
// generation service.
type Generator interface {
	ExecuteBackground(ctx context.Context, sessionID string) error
}

// Worker processes generation tasks from the queue.
type Worker struct {
	id           int
	queue        queue.TaskQueue
	generator    Generator
	taskTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	stopChan     chan struct{}
}

// NewWorker creates a new background worker.
func NewWorker(id int, taskQueue queue.TaskQueue, generator Generator, taskTimeout, pollInterval time.Duration, log zerolog.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		id:           id,
		queue:        taskQueue,
		generator:    generator,
		taskTimeout:  taskTimeout,
		pollInterval: pollInterval,
		log:          log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start begins processing tasks from the queue.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.processNextTask(ctx)
			if depth, err := w.queue.GetQueueDepth(ctx); err == nil {
				metrics.SetQueueDepth(int(depth))
			}
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) processNextTask(ctx context.Context) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue task")
		return
	}
	if task == nil {
		return
	}

	w.log.Info().
		Uint("task_id", task.ID).
		Str("session_id", task.SessionID).
		Msg("processing generation task")

	if err := w.queue.MarkProcessing(ctx, task.ID); err != nil {
		w.log.Error().Err(err).Uint("task_id", task.ID).Msg("failed to mark processing")
		return
	}

	taskCtx := ctx
	if w.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.taskTimeout)
		defer cancel()
	}

	if err := w.generator.ExecuteBackground(taskCtx, task.SessionID); err != nil {
		w.log.Error().Err(err).Uint("task_id", task.ID).Msg("task execution failed")
		metrics.RecordBackgroundJob("generation", "failed")
		if markErr := w.queue.MarkFailed(ctx, task.ID, err); markErr != nil {
			w.log.Error().Err(markErr).Uint("task_id", task.ID).Msg("failed to mark task as failed")
		}
		return
	}

	if err := w.queue.MarkCompleted(ctx, task.ID); err != nil {
		w.log.Error().Err(err).Uint("task_id", task.ID).Msg("failed to mark task as completed")
		return
	}

	metrics.RecordBackgroundJob("generation", "completed")
	w.log.Info().Uint("task_id", task.ID).Msg("task completed successfully")
}
