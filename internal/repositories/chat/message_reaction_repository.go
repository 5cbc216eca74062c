package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type MessageReactionRepository struct {
	DB *gorm.DB
}

func NewMessageReactionRepository(db *gorm.DB) *MessageReactionRepository {
	return &MessageReactionRepository{DB: db}
}

func (r *MessageReactionRepository) WithTx(tx *gorm.DB) *MessageReactionRepository {
	return &MessageReactionRepository{DB: tx}
}

func (r *MessageReactionRepository) Add(reaction *chat.MessageReaction) error {
	return r.DB.Create(reaction).Error
}

func (r *MessageReactionRepository) Remove(userID, messageID, emoji string) error {
	return r.DB.Where("user_id = ? AND message_id = ? AND emoji = ?", userID, messageID, emoji).
		Delete(&chat.MessageReaction{}).Error
}

func (r *MessageReactionRepository) GetByMessageID(messageID string) ([]chat.MessageReaction, error) {
	var reactions []chat.MessageReaction
	err := r.DB.Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, err
}

func (r *MessageReactionRepository) Exists(userID, messageID, emoji string) (bool, error) {
	var count int64
	err := r.DB.Model(&chat.MessageReaction{}).
		Where("user_id = ? AND message_id = ? AND emoji = ?", userID, messageID, emoji).
		Count(&count).Error
	return count > 0, err
}

func (r *MessageReactionRepository) DeleteByMessageID(messageID string) error {
	return r.DB.Where("message_id = ?", messageID).Delete(&chat.MessageReaction{}).Error
}

// DeleteByChat removes every reaction on the chat's messages; used when a
// chat is torn down.
func (r *MessageReactionRepository) DeleteByChat(chatID string) error {
	sub := r.DB.Session(&gorm.Session{NewDB: true}).
		Model(&chat.Message{}).Select("id").Where("chat_id = ?", chatID)
	return r.DB.Where("message_id IN (?)", sub).Delete(&chat.MessageReaction{}).Error
}

// Toggle inserts the reaction when absent and removes it when present.
// Returns whether the reaction now exists.
func (r *MessageReactionRepository) Toggle(userID, messageID, emoji string) (bool, error) {
	exists, err := r.Exists(userID, messageID, emoji)
	if err != nil {
		return false, err
	}
	if exists {
		if err := r.Remove(userID, messageID, emoji); err != nil {
			return false, err
		}
		return false, nil
	}
	reaction := &chat.MessageReaction{
		ID:        uuid.New().String(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	}
	if err := r.Add(reaction); err != nil {
		return false, err
	}
	return true, nil
}
