package chat

import "time"

type Chat struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      *string
	AvatarURL *string
	IsGroup   bool `gorm:"default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Participants []ChatParticipant `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
	Settings     *ChatSettings     `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
	Tags         []ChatTag         `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

func (Chat) TableName() string {
	return "chats"
}

// ChatSettings holds per-group toggles. A missing row means all defaults
// (everything allowed, not muted).
type ChatSettings struct {
	ChatID                  string `gorm:"primaryKey;type:uuid"`
	OnlyAdminsCanAddMembers bool   `gorm:"default:false"`
	OnlyAdminsCanChangeInfo bool   `gorm:"default:false"`
	OnlyAdminsCanSend       bool   `gorm:"default:false"`
	Muted                   bool   `gorm:"default:false"`
	UpdatedAt               time.Time
}

func (ChatSettings) TableName() string {
	return "chat_settings"
}
