package dto

import "time"

// CreatePollInput creates a poll in a group chat.
type CreatePollInput struct {
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required,min=2"`
}

// VoteInput casts or changes a vote.
type VoteInput struct {
	OptionID string `json:"optionId" binding:"required"`
}

// PollOptionView is one option with its current count.
type PollOptionView struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

// PollView is the hydrated poll with tallies.
type PollView struct {
	ID         string           `json:"id"`
	ChatID     string           `json:"chatId"`
	CreatorID  string           `json:"creatorId"`
	Question   string           `json:"question"`
	Options    []PollOptionView `json:"options"`
	TotalVotes int64            `json:"totalVotes"`
	CreatedAt  time.Time        `json:"createdAt"`
	ExpiresAt  *time.Time       `json:"expiresAt,omitempty"`
}
