package entities

import (
	"time"

	"mashup-server/internal/domain/conversation"
)

// ConversationMessage persists one role-tagged turn of a conversation.
type ConversationMessage struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID uint   `gorm:"index:idx_message_conversation_sequence;not null"`
	Role           string `gorm:"type:varchar(20);not null"`
	Content        string `gorm:"type:text;not null"`
	Sequence       int    `gorm:"index:idx_message_conversation_sequence;not null"`
	CreatedAt      time.Time
}

// TableName specifies the table name for ConversationMessage.
func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

// EtoD converts database entity to domain model
func (m *ConversationMessage) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		Sequence:       m.Sequence,
		CreatedAt:      m.CreatedAt,
	}
}
