package chat

import "time"

type Tag struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (Tag) TableName() string {
	return "tags"
}

// ChatTag links a chat to a tag. Tag assignment is full-replace on update.
type ChatTag struct {
	ChatID string `gorm:"primaryKey;type:uuid"`
	TagID  string `gorm:"primaryKey;type:uuid"`

	Tag *Tag `gorm:"foreignKey:TagID"`
}

func (ChatTag) TableName() string {
	return "chat_tags"
}
