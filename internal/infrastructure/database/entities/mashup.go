package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"mashup-server/internal/domain/conversation"
)

// Mashup persists a generated educational mashup.
type Mashup struct {
	ID             uint           `gorm:"primaryKey"`
	ConversationID uint           `gorm:"index;not null"`
	Title          string         `gorm:"type:varchar(256);not null"`
	Content        string         `gorm:"type:text;not null"`
	SkillLevel     string         `gorm:"type:varchar(20)"`
	Genres         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time
}

// TableName specifies the table name for Mashup.
func (Mashup) TableName() string {
	return "mashups"
}

// EtoD converts database entity to domain model
func (m *Mashup) EtoD() *conversation.Mashup {
	var genres []string
	if len(m.Genres) > 0 {
		_ = json.Unmarshal(m.Genres, &genres)
	}
	return &conversation.Mashup{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Title:          m.Title,
		Content:        m.Content,
		SkillLevel:     m.SkillLevel,
		Genres:         genres,
		CreatedAt:      m.CreatedAt,
	}
}

// NewSchemaMashup creates a database entity from domain model
func NewSchemaMashup(m *conversation.Mashup) (*Mashup, error) {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return nil, err
	}
	return &Mashup{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Title:          m.Title,
		Content:        m.Content,
		SkillLevel:     m.SkillLevel,
		Genres:         datatypes.JSON(genres),
		CreatedAt:      m.CreatedAt,
	}, nil
}
