package chat

import "time"

// ScheduledMessage transitions pending -> sent exactly once; firing
// re-checks IsSent before acting.
type ScheduledMessage struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	ChatID    string    `gorm:"index;not null"`
	SenderID  string    `gorm:"index;not null"`
	Content   string    `gorm:"type:text;not null"`
	SendAt    time.Time `gorm:"index;not null"`
	IsSent    bool      `gorm:"default:false;index"`
	CreatedAt time.Time
}

func (ScheduledMessage) TableName() string {
	return "scheduled_messages"
}
