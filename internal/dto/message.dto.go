package dto

import (
	"encoding/json"
	"time"
)

// SendMessageInput is a message draft from a client.
type SendMessageInput struct {
	ChatID    string          `json:"chatId" binding:"required"`
	Type      string          `json:"type"`
	Content   string          `json:"content"`
	ReplyToID *string         `json:"replyToId"`
	Metadata  json.RawMessage `json:"metadata"`
}

// ScheduleMessageInput arms a future text message.
type ScheduleMessageInput struct {
	ChatID  string    `json:"chatId" binding:"required"`
	Content string    `json:"content" binding:"required"`
	SendAt  time.Time `json:"sendAt" binding:"required"`
}

// ReplyView is the quoted-message stub embedded in a MessageView.
type ReplyView struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderName string `json:"senderName,omitempty"`
}

// ReactionGroup aggregates one emoji on one message.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// MessageView is the hydrated message sent to clients. System messages
// have a nil sender.
type MessageView struct {
	ID        string          `json:"id"`
	ChatID    string          `json:"chatId"`
	SenderID  *string         `json:"senderId,omitempty"`
	Sender    *UserView       `json:"sender,omitempty"`
	Type      string          `json:"type"`
	Content   string          `json:"content"`
	Metadata  any             `json:"metadata,omitempty"`
	ReplyTo   *ReplyView      `json:"replyTo,omitempty"`
	Pinned    bool            `json:"pinned"`
	Reactions []ReactionGroup `json:"reactions"`
	CreatedAt time.Time       `json:"createdAt"`
}
