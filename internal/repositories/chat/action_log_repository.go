package chat

import (
	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type ActionLogRepository struct {
	DB *gorm.DB
}

func NewActionLogRepository(db *gorm.DB) *ActionLogRepository {
	return &ActionLogRepository{DB: db}
}

func (r *ActionLogRepository) WithTx(tx *gorm.DB) *ActionLogRepository {
	return &ActionLogRepository{DB: tx}
}

// Append records an action; the log is append-only.
func (r *ActionLogRepository) Append(entry *chat.ActionLog) error {
	return r.DB.Create(entry).Error
}

func (r *ActionLogRepository) DeleteByChat(chatID string) error {
	return r.DB.Where("chat_id = ?", chatID).Delete(&chat.ActionLog{}).Error
}

func (r *ActionLogRepository) ListByChat(chatID string, limit int) ([]chat.ActionLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []chat.ActionLog
	err := r.DB.Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
