package chat

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: tx}
}

func (r *MessageRepository) Create(m *chat.Message) error {
	return r.DB.Create(m).Error
}

// FindByID returns the message with sender, reply target and reactions
// resolved, or nil when it does not exist.
func (r *MessageRepository) FindByID(id string) (*chat.Message, error) {
	var m chat.Message
	err := r.DB.
		Preload("Sender").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByChat returns the chat's messages in creation order, fully resolved.
func (r *MessageRepository) GetByChat(chatID string) ([]chat.Message, error) {
	var msgs []chat.Message
	err := r.DB.
		Preload("Sender").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// LastByChat returns the newest message of the chat, or nil when empty.
func (r *MessageRepository) LastByChat(chatID string) (*chat.Message, error) {
	var m chat.Message
	err := r.DB.
		Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete hard-deletes the message. Reactions are removed in the same
// transaction by the service; the pinned flag dies with the row.
func (r *MessageRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&chat.Message{}).Error
}

func (r *MessageRepository) DeleteByChat(chatID string) error {
	return r.DB.Where("chat_id = ?", chatID).Delete(&chat.Message{}).Error
}

func (r *MessageRepository) SetPinned(id string, pinned bool) error {
	return r.DB.Model(&chat.Message{}).Where("id = ?", id).Update("pinned", pinned).Error
}

func (r *MessageRepository) ListPinned(chatID string) ([]chat.Message, error) {
	var msgs []chat.Message
	err := r.DB.
		Preload("Sender").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		Where("chat_id = ? AND pinned = ?", chatID, true).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// Search does a case-insensitive substring match over message content.
func (r *MessageRepository) Search(chatID, query string) ([]chat.Message, error) {
	var msgs []chat.Message
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.DB.
		Preload("Sender").
		Where("chat_id = ? AND LOWER(content) LIKE ?", chatID, pattern).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
