package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loopchat_backend/internal/models/chat"
)

type PollRepository struct {
	DB *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{DB: db}
}

func (r *PollRepository) WithTx(tx *gorm.DB) *PollRepository {
	return &PollRepository{DB: tx}
}

// Create persists the poll together with its options.
func (r *PollRepository) Create(poll *chat.Poll) error {
	return r.DB.Create(poll).Error
}

func (r *PollRepository) FindByID(id string) (*chat.Poll, error) {
	var poll chat.Poll
	err := r.DB.Preload("Options").First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// FindOption returns the option only when it belongs to the given poll.
func (r *PollRepository) FindOption(pollID, optionID string) (*chat.PollOption, error) {
	var opt chat.PollOption
	err := r.DB.First(&opt, "id = ? AND poll_id = ?", optionID, pollID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

// SaveVote records the user's vote with last-vote-wins semantics: an
// existing (poll, user) row is overwritten, never duplicated.
func (r *PollRepository) SaveVote(pollID, userID, optionID string) error {
	var vote chat.PollVote
	err := r.DB.First(&vote, "poll_id = ? AND user_id = ?", pollID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		vote = chat.PollVote{
			ID:        uuid.New().String(),
			PollID:    pollID,
			UserID:    userID,
			OptionID:  optionID,
			CreatedAt: time.Now(),
		}
		return r.DB.Create(&vote).Error
	}
	if err != nil {
		return err
	}
	return r.DB.Model(&vote).Update("option_id", optionID).Error
}

// OptionTally is the per-option vote count of a poll.
type OptionTally struct {
	OptionID string `gorm:"column:option_id"`
	Count    int64  `gorm:"column:count"`
}

// Tally recomputes per-option counts for the poll.
func (r *PollRepository) Tally(pollID string) ([]OptionTally, error) {
	var tallies []OptionTally
	err := r.DB.Model(&chat.PollVote{}).
		Select("option_id, COUNT(*) as count").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&tallies).Error
	return tallies, err
}

func (r *PollRepository) CountVotes(pollID string) (int64, error) {
	var count int64
	err := r.DB.Model(&chat.PollVote{}).Where("poll_id = ?", pollID).Count(&count).Error
	return count, err
}

func (r *PollRepository) DeleteByChat(chatID string) error {
	var pollIDs []string
	if err := r.DB.Model(&chat.Poll{}).Where("chat_id = ?", chatID).Pluck("id", &pollIDs).Error; err != nil {
		return err
	}
	if len(pollIDs) == 0 {
		return nil
	}
	if err := r.DB.Where("poll_id IN ?", pollIDs).Delete(&chat.PollVote{}).Error; err != nil {
		return err
	}
	if err := r.DB.Where("poll_id IN ?", pollIDs).Delete(&chat.PollOption{}).Error; err != nil {
		return err
	}
	return r.DB.Where("id IN ?", pollIDs).Delete(&chat.Poll{}).Error
}
