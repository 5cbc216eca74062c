package chat

import (
	"time"

	"gorm.io/datatypes"

	"loopchat_backend/internal/models"
)

// MessageType is a closed set; Valid rejects anything outside it.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeFile     MessageType = "file"
	MessageTypeLocation MessageType = "location"
	MessageTypePoll     MessageType = "poll"
	MessageTypeLink     MessageType = "link"
	MessageTypeSystem   MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeFile,
		MessageTypeLocation, MessageTypePoll, MessageTypeLink, MessageTypeSystem:
		return true
	}
	return false
}

// Message rows are immutable after creation except for hard deletion and
// the pinned flag. SenderID is nil for system messages.
type Message struct {
	ID        string  `gorm:"primaryKey;type:uuid"`
	ChatID    string  `gorm:"index;not null"`
	SenderID  *string `gorm:"index"`
	Type      MessageType
	Content   string  `gorm:"type:text"`
	ReplyToID *string `gorm:"index"`
	Metadata  datatypes.JSON
	Pinned    bool `gorm:"default:false;index"`
	CreatedAt time.Time

	Sender    *models.User      `gorm:"foreignKey:SenderID"`
	ReplyTo   *Message          `gorm:"foreignKey:ReplyToID"`
	Reactions []MessageReaction `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) IsSystem() bool {
	return m.SenderID == nil
}
