package chat

import (
	"time"

	"gorm.io/datatypes"
)

// Administrative/moderation actions recorded per chat.
const (
	ActionMemberAdded   = "member_added"
	ActionMemberRemoved = "member_removed"
	ActionMemberLeft    = "member_left"
	ActionPromoted      = "promoted"
	ActionDemoted       = "demoted"
	ActionMessagePinned = "message_pinned"
	ActionMessageUnpin  = "message_unpinned"
	ActionMessageDelete = "message_deleted"
	ActionChatUpdated   = "chat_updated"
)

// ActionLog is append-only.
type ActionLog struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	ChatID    string `gorm:"index;not null"`
	ActorID   string `gorm:"index;not null"`
	Action    string `gorm:"type:varchar(32);not null"`
	Details   datatypes.JSON
	CreatedAt time.Time
}

func (ActionLog) TableName() string {
	return "action_logs"
}
