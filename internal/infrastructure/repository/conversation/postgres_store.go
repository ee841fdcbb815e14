// Package conversation provides the PostgreSQL-backed implementation of the
// conversation store.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "mashup-server/internal/domain/conversation"
	"mashup-server/internal/infrastructure/database/entities"
)

// PostgresStore implements domain.Store on a GORM connection.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore constructs the store.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ domain.Store = (*PostgresStore)(nil)

// GetOrCreate returns the conversation for sessionID, inserting it in the
// initial phase when absent. The insert ignores conflicts on session_id so
// concurrent creates converge on the same row.
func (s *PostgresStore) GetOrCreate(ctx context.Context, sessionID string, metadata map[string]string) (*domain.Conversation, error) {
	entity := &entities.Conversation{
		SessionID: sessionID,
		Phase:     string(domain.PhaseInitial),
		Metadata:  metadata,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(entity).Error
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return s.Get(ctx, sessionID)
}

// Get returns the conversation for sessionID, or nil when absent.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return entity.EtoD(), nil
}

// UpdatePhase moves the stored phase and rewrites updated_at.
func (s *PostgresStore) UpdatePhase(ctx context.Context, sessionID string, phase domain.Phase) error {
	result := s.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("session_id = ?", sessionID).
		Update("phase", string(phase))
	if result.Error != nil {
		return fmt.Errorf("update phase: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("conversation not found: %s", sessionID)
	}
	return nil
}

// AppendMessage adds one message with the next sequence number. The sequence
// is assigned inside a transaction so concurrent appends never collide.
func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID string, role domain.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid message role: %q", role)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convID, err := conversationID(tx, sessionID)
		if err != nil {
			return err
		}

		var maxSeq int
		if err := tx.Model(&entities.ConversationMessage{}).
			Where("conversation_id = ?", convID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		msg := &entities.ConversationMessage{
			ConversationID: convID,
			Role:           string(role),
			Content:        content,
			Sequence:       maxSeq + 1,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

// ListMessages returns up to limit most-recent messages in ascending
// sequence order, skipping offset messages from the end first.
func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	convID, err := conversationID(s.db.WithContext(ctx), sessionID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("sequence DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []entities.ConversationMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Rows come back newest first; reverse into chronological order.
	messages := make([]domain.Message, len(rows))
	for i, row := range rows {
		messages[len(rows)-1-i] = *row.EtoD()
	}
	return messages, nil
}

// Summary aggregates stored counts for the session.
func (s *PostgresStore) Summary(ctx context.Context, sessionID string) (*domain.Summary, error) {
	conv, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation not found: %s", sessionID)
	}

	summary := &domain.Summary{
		SessionID: sessionID,
		Phase:     conv.Phase,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&entities.ConversationMessage{}).Where("conversation_id = ?", conv.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	summary.MessageCount = int(count)

	if err := db.Model(&entities.ToolCall{}).Where("conversation_id = ?", conv.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count tool calls: %w", err)
	}
	summary.ToolCallCount = int(count)

	if err := db.Model(&entities.Mashup{}).Where("conversation_id = ?", conv.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count mashups: %w", err)
	}
	summary.MashupCount = int(count)

	return summary, nil
}

// AddToolCall records a dispatched call and returns its row id.
func (s *PostgresStore) AddToolCall(ctx context.Context, sessionID, toolType, inputData, status string) (uint, error) {
	convID, err := conversationID(s.db.WithContext(ctx), sessionID)
	if err != nil {
		return 0, err
	}

	entity := &entities.ToolCall{
		ConversationID: convID,
		ToolType:       toolType,
		InputData:      jsonOrNull(inputData),
		Status:         status,
	}
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return 0, fmt.Errorf("add tool call: %w", err)
	}
	return entity.ID, nil
}

// UpdateToolCall moves a recorded call to a terminal status.
func (s *PostgresStore) UpdateToolCall(ctx context.Context, id uint, outputData, status, errorMessage string) error {
	result := s.db.WithContext(ctx).
		Model(&entities.ToolCall{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"output_data":   jsonOrNull(outputData),
			"status":        status,
			"error_message": errorMessage,
		})
	if result.Error != nil {
		return fmt.Errorf("update tool call: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("tool call not found: %d", id)
	}
	return nil
}

// ListToolCalls returns up to limit calls for the session, newest first.
func (s *PostgresStore) ListToolCalls(ctx context.Context, sessionID string, limit int) ([]domain.ToolCall, error) {
	convID, err := conversationID(s.db.WithContext(ctx), sessionID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []entities.ToolCall
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}

	calls := make([]domain.ToolCall, len(rows))
	for i, row := range rows {
		calls[i] = *row.EtoD()
	}
	return calls, nil
}

// CreateMashup persists a generated mashup and backfills its id.
func (s *PostgresStore) CreateMashup(ctx context.Context, sessionID string, mashup *domain.Mashup) error {
	convID, err := conversationID(s.db.WithContext(ctx), sessionID)
	if err != nil {
		return err
	}
	mashup.ConversationID = convID

	entity, err := entities.NewSchemaMashup(mashup)
	if err != nil {
		return fmt.Errorf("encode mashup: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create mashup: %w", err)
	}
	mashup.ID = entity.ID
	mashup.CreatedAt = entity.CreatedAt
	return nil
}

// ListMashups returns the session's mashups, newest first.
func (s *PostgresStore) ListMashups(ctx context.Context, sessionID string) ([]domain.Mashup, error) {
	convID, err := conversationID(s.db.WithContext(ctx), sessionID)
	if err != nil {
		return nil, err
	}

	var rows []entities.Mashup
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list mashups: %w", err)
	}

	mashups := make([]domain.Mashup, len(rows))
	for i, row := range rows {
		mashups[i] = *row.EtoD()
	}
	return mashups, nil
}

func conversationID(db *gorm.DB, sessionID string) (uint, error) {
	var entity entities.Conversation
	err := db.Select("id").Where("session_id = ?", sessionID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("conversation not found: %s", sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("load conversation: %w", err)
	}
	return entity.ID, nil
}
