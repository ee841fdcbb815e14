package entities

import (
	"time"

	"gorm.io/datatypes"

	"mashup-server/internal/domain/conversation"
)

// ToolCall persists each research tool invocation as an audit record.
type ToolCall struct {
	ID             uint           `gorm:"primaryKey"`
	ConversationID uint           `gorm:"index;not null"`
	ToolType       string         `gorm:"type:varchar(40);not null"`
	InputData      datatypes.JSON `gorm:"type:jsonb"`
	OutputData     datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"type:varchar(20);index;not null"`
	ErrorMessage   string         `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for ToolCall.
func (ToolCall) TableName() string {
	return "tool_calls"
}

// EtoD converts database entity to domain model
func (t *ToolCall) EtoD() *conversation.ToolCall {
	return &conversation.ToolCall{
		ID:             t.ID,
		ConversationID: t.ConversationID,
		ToolType:       t.ToolType,
		InputData:      string(t.InputData),
		OutputData:     string(t.OutputData),
		Status:         t.Status,
		ErrorMessage:   t.ErrorMessage,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
