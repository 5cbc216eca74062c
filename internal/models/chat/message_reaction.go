package chat

import "time"

// MessageReaction existence means "this user reacted with this emoji".
// Rows are created and destroyed by toggling, never updated.
type MessageReaction struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	MessageID string `gorm:"index;not null;uniqueIndex:idx_reaction_message_user_emoji"`
	UserID    string `gorm:"index;not null;uniqueIndex:idx_reaction_message_user_emoji"`
	Emoji     string `gorm:"type:varchar(16);not null;uniqueIndex:idx_reaction_message_user_emoji"`
	CreatedAt time.Time
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}
