package chat

import (
	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

// WithTx rebinds the repository to a transaction.
func (r *ChatRepository) WithTx(tx *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: tx}
}

// FindByID returns the chat with participants (and their users), settings
// and tags resolved.
func (r *ChatRepository) FindByID(id string) (*chat.Chat, error) {
	var c chat.Chat
	err := r.DB.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("chat_participants.joined_at ASC")
		}).
		Preload("Participants.User").
		Preload("Settings").
		Preload("Tags.Tag").
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindDirectChat looks up an existing two-party chat between the given
// users, order-independent. Returns nil without error when none exists.
func (r *ChatRepository) FindDirectChat(user1ID, user2ID string) (*chat.Chat, error) {
	var c chat.Chat
	err := r.DB.Raw(`
		SELECT c.* FROM chats c
		JOIN chat_participants cp1 ON cp1.chat_id = c.id AND cp1.user_id = ?
		JOIN chat_participants cp2 ON cp2.chat_id = c.id AND cp2.user_id = ?
		WHERE c.is_group = ?
		LIMIT 1`, user1ID, user2ID, false).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, nil
	}
	return &c, nil
}

func (r *ChatRepository) Create(c *chat.Chat) error {
	return r.DB.Create(c).Error
}

// Delete removes the chat row only; the service deletes dependents in the
// same transaction since not every driver enforces FK cascades.
func (r *ChatRepository) Delete(chatID string) error {
	return r.DB.Where("id = ?", chatID).Delete(&chat.Chat{}).Error
}

// FindAllByUser returns every chat the user participates in, most recently
// active first.
func (r *ChatRepository) FindAllByUser(userID string) ([]chat.Chat, error) {
	var chats []chat.Chat
	err := r.DB.
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("chat_participants.joined_at ASC")
		}).
		Preload("Participants.User").
		Preload("Settings").
		Preload("Tags.Tag").
		Order("chats.updated_at DESC").
		Find(&chats).Error
	return chats, err
}

// Touch bumps updated_at so the chat sorts to the top of chat lists.
func (r *ChatRepository) Touch(chatID string) error {
	return r.DB.Model(&chat.Chat{}).Where("id = ?", chatID).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *ChatRepository) UpdateInfo(chatID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.DB.Model(&chat.Chat{}).Where("id = ?", chatID).Updates(updates).Error
}

// SaveSettings upserts the settings row for a chat.
func (r *ChatRepository) SaveSettings(s *chat.ChatSettings) error {
	return r.DB.Save(s).Error
}

func (r *ChatRepository) DeleteSettings(chatID string) error {
	return r.DB.Where("chat_id = ?", chatID).Delete(&chat.ChatSettings{}).Error
}
