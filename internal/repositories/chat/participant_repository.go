package chat

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loopchat_backend/internal/models/chat"
)

type ParticipantRepository struct {
	DB *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: db}
}

func (r *ParticipantRepository) WithTx(tx *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: tx}
}

// lockForUpdate adds row locking where the driver supports it. SQLite has
// no FOR UPDATE; its single-writer transactions already serialize these.
func (r *ParticipantRepository) lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *ParticipantRepository) Add(p *chat.ChatParticipant) error {
	return r.DB.Create(p).Error
}

func (r *ParticipantRepository) AddMany(ps []chat.ChatParticipant) error {
	if len(ps) == 0 {
		return nil
	}
	return r.DB.Create(&ps).Error
}

// Find returns the participant row, or nil when the user is not a member.
func (r *ParticipantRepository) Find(chatID, userID string) (*chat.ChatParticipant, error) {
	var p chat.ChatParticipant
	err := r.DB.First(&p, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindForUpdate is Find with the row locked for the enclosing transaction.
func (r *ParticipantRepository) FindForUpdate(chatID, userID string) (*chat.ChatParticipant, error) {
	var p chat.ChatParticipant
	err := r.lockForUpdate(r.DB).First(&p, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) IsParticipant(chatID, userID string) (bool, error) {
	var count int64
	err := r.DB.Model(&chat.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListByChat returns participants in join order (insertion order is the
// deterministic tie-break for admin promotion).
func (r *ParticipantRepository) ListByChat(chatID string) ([]chat.ChatParticipant, error) {
	var ps []chat.ChatParticipant
	err := r.DB.Preload("User").
		Where("chat_id = ?", chatID).
		Order("joined_at ASC").
		Find(&ps).Error
	return ps, err
}

// ListByChatForUpdate locks every participant row of the chat so that
// concurrent membership mutations serialize on the same transaction.
func (r *ParticipantRepository) ListByChatForUpdate(chatID string) ([]chat.ChatParticipant, error) {
	var ps []chat.ChatParticipant
	err := r.lockForUpdate(r.DB).
		Where("chat_id = ?", chatID).
		Order("joined_at ASC").
		Find(&ps).Error
	return ps, err
}

func (r *ParticipantRepository) CountByChat(chatID string) (int64, error) {
	var count int64
	err := r.DB.Model(&chat.ChatParticipant{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	return count, err
}

func (r *ParticipantRepository) CountAdmins(chatID string) (int64, error) {
	var count int64
	err := r.DB.Model(&chat.ChatParticipant{}).
		Where("chat_id = ? AND is_admin = ?", chatID, true).
		Count(&count).Error
	return count, err
}

func (r *ParticipantRepository) SetAdmin(chatID, userID string, isAdmin bool) error {
	return r.DB.Model(&chat.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("is_admin", isAdmin).Error
}

func (r *ParticipantRepository) Remove(chatID, userID string) error {
	return r.DB.Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&chat.ChatParticipant{}).Error
}

func (r *ParticipantRepository) RemoveAllByChat(chatID string) error {
	return r.DB.Where("chat_id = ?", chatID).Delete(&chat.ChatParticipant{}).Error
}

// ListUserIDs returns the ids of every participant of a chat.
func (r *ParticipantRepository) ListUserIDs(chatID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&chat.ChatParticipant{}).
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	return ids, err
}
