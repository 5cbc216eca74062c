package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type TagRepository struct {
	DB *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{DB: db}
}

func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{DB: tx}
}

// EnsureTags resolves names to tag rows, creating the ones that are new.
func (r *TagRepository) EnsureTags(names []string) ([]chat.Tag, error) {
	tags := make([]chat.Tag, 0, len(names))
	for _, name := range names {
		var tag chat.Tag
		err := r.DB.First(&tag, "name = ?", name).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = chat.Tag{
				ID:        uuid.New().String(),
				Name:      name,
				CreatedAt: time.Now(),
			}
			if err := r.DB.Create(&tag).Error; err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// ReplaceChatTags swaps the chat's tag set wholesale: delete all, insert
// the provided set. Not a diff.
func (r *TagRepository) ReplaceChatTags(chatID string, tagIDs []string) error {
	if err := r.DB.Where("chat_id = ?", chatID).Delete(&chat.ChatTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]chat.ChatTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		links = append(links, chat.ChatTag{ChatID: chatID, TagID: tagID})
	}
	return r.DB.Create(&links).Error
}

func (r *TagRepository) ListByChat(chatID string) ([]chat.Tag, error) {
	var tags []chat.Tag
	err := r.DB.
		Joins("JOIN chat_tags ct ON ct.tag_id = tags.id").
		Where("ct.chat_id = ?", chatID).
		Order("tags.name ASC").
		Find(&tags).Error
	return tags, err
}
