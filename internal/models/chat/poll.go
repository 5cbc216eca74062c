package chat

import "time"

type Poll struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	ChatID    string `gorm:"index;not null"`
	CreatorID string `gorm:"index;not null"`
	Question  string `gorm:"type:text;not null"`
	CreatedAt time.Time
	ExpiresAt *time.Time

	Options []PollOption `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
}

func (Poll) TableName() string {
	return "polls"
}

type PollOption struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	PollID string `gorm:"index;not null"`
	Text   string `gorm:"not null"`
}

func (PollOption) TableName() string {
	return "poll_options"
}

// PollVote is unique per (poll, user): voting again overwrites the
// previous choice, it never appends.
type PollVote struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	PollID    string `gorm:"not null;uniqueIndex:idx_poll_vote_poll_user"`
	UserID    string `gorm:"not null;uniqueIndex:idx_poll_vote_poll_user"`
	OptionID  string `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PollVote) TableName() string {
	return "poll_votes"
}
