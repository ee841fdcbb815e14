package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mashup-server/internal/infrastructure/database/entities"
)

// PostgresQueue implements TaskQueue on the generation_tasks table.
type PostgresQueue struct {
	db          *gorm.DB
	maxAttempts int
	log         zerolog.Logger
}

// NewPostgresQueue creates a new PostgreSQL-backed task queue.
func NewPostgresQueue(db *gorm.DB, maxAttempts int, log zerolog.Logger) *PostgresQueue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &PostgresQueue{
		db:          db,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "postgres-queue").Logger(),
	}
}

// Enqueue inserts a queued generation task for the session.
func (q *PostgresQueue) Enqueue(ctx context.Context, sessionID string) (uint, error) {
	entity := &entities.GenerationTask{
		SessionID: sessionID,
		Status:    "queued",
		QueuedAt:  time.Now(),
	}
	if err := q.db.WithContext(ctx).Create(entity).Error; err != nil {
		return 0, fmt.Errorf("enqueue task: %w", err)
	}
	return entity.ID, nil
}

// Dequeue fetches the next queued task using FOR UPDATE SKIP LOCKED.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	var entity entities.GenerationTask

	err := q.db.WithContext(ctx).
		Raw("SELECT * FROM generation_tasks WHERE status = ? ORDER BY queued_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED", "queued").
		Scan(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}

	// No rows matched.
	if entity.ID == 0 {
		return nil, nil
	}

	return &Task{
		ID:        entity.ID,
		SessionID: entity.SessionID,
		Attempts:  entity.Attempts,
		QueuedAt:  entity.QueuedAt,
	}, nil
}

// MarkProcessing updates the task status to in_progress and bumps attempts.
func (q *PostgresQueue) MarkProcessing(ctx context.Context, taskID uint) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.GenerationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     "in_progress",
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("mark processing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task not found: %d", taskID)
	}
	return nil
}

// MarkCompleted updates the task status to completed.
func (q *PostgresQueue) MarkCompleted(ctx context.Context, taskID uint) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.GenerationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("mark completed: %w", result.Error)
	}
	return nil
}

// MarkFailed records the failure, requeueing the task while attempts remain.
func (q *PostgresQueue) MarkFailed(ctx context.Context, taskID uint, taskErr error) error {
	var entity entities.GenerationTask
	if err := q.db.WithContext(ctx).First(&entity, taskID).Error; err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	status := "queued"
	if entity.Attempts >= q.maxAttempts {
		status = "failed"
		q.log.Warn().
			Uint("task_id", taskID).
			Str("session_id", entity.SessionID).
			Int("attempts", entity.Attempts).
			Msg("task exhausted retry budget")
	}

	result := q.db.WithContext(ctx).
		Model(&entities.GenerationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": taskErr.Error(),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("mark failed: %w", result.Error)
	}
	return nil
}

// GetQueueDepth returns the number of queued tasks.
func (q *PostgresQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.GenerationTask{}).
		Where("status = ?", "queued").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("get queue depth: %w", err)
	}
	return count, nil
}
