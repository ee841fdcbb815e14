package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mashup-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for the mashup domain.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Conversation{},
		&entities.ConversationMessage{},
		&entities.ToolCall{},
		&entities.Mashup{},
		&entities.GenerationTask{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
