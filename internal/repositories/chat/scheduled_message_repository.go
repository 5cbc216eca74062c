package chat

import (
	"errors"

	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type ScheduledMessageRepository struct {
	DB *gorm.DB
}

func NewScheduledMessageRepository(db *gorm.DB) *ScheduledMessageRepository {
	return &ScheduledMessageRepository{DB: db}
}

func (r *ScheduledMessageRepository) WithTx(tx *gorm.DB) *ScheduledMessageRepository {
	return &ScheduledMessageRepository{DB: tx}
}

func (r *ScheduledMessageRepository) Create(m *chat.ScheduledMessage) error {
	return r.DB.Create(m).Error
}

func (r *ScheduledMessageRepository) FindByID(id string) (*chat.ScheduledMessage, error) {
	var m chat.ScheduledMessage
	err := r.DB.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListPending returns every unsent row; used to re-arm timers on boot.
func (r *ScheduledMessageRepository) ListPending() ([]chat.ScheduledMessage, error) {
	var msgs []chat.ScheduledMessage
	err := r.DB.Where("is_sent = ?", false).Order("send_at ASC").Find(&msgs).Error
	return msgs, err
}

func (r *ScheduledMessageRepository) MarkSent(id string) error {
	return r.DB.Model(&chat.ScheduledMessage{}).Where("id = ?", id).Update("is_sent", true).Error
}

func (r *ScheduledMessageRepository) DeleteByChat(chatID string) error {
	return r.DB.Where("chat_id = ?", chatID).Delete(&chat.ScheduledMessage{}).Error
}
