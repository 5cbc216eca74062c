package chat

import (
	"time"

	"loopchat_backend/internal/models"
)

type ChatParticipant struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	ChatID   string `gorm:"index;not null;uniqueIndex:idx_chat_participant"`
	UserID   string `gorm:"index;not null;uniqueIndex:idx_chat_participant"`
	IsAdmin  bool   `gorm:"default:false"`
	JoinedAt time.Time

	User *models.User `gorm:"foreignKey:UserID"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}
