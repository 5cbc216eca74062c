package database

import (
	"gorm.io/gorm"

	"loopchat_backend/internal/models"
	"loopchat_backend/internal/models/chat"
)

// Migrate creates/updates every table. Order matters for FK references.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&chat.Chat{},
		&chat.ChatSettings{},
		&chat.ChatParticipant{},
		&chat.Tag{},
		&chat.ChatTag{},
		&chat.Message{},
		&chat.MessageReaction{},
		&chat.Poll{},
		&chat.PollOption{},
		&chat.PollVote{},
		&chat.ScheduledMessage{},
		&chat.ActionLog{},
	)
}
