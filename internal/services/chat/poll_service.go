package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loopchat_backend/internal/dto"
	modelChat "loopchat_backend/internal/models/chat"
	repoChat "loopchat_backend/internal/repositories/chat"
	"loopchat_backend/pkg/apperrors"
)

// PollService creates polls and records votes with last-vote-wins
// semantics.
type PollService struct {
	db           *gorm.DB
	chats        *repoChat.ChatRepository
	participants *repoChat.ParticipantRepository
	messages     *repoChat.MessageRepository
	polls        *repoChat.PollRepository
	notifier     Notifier
}

func NewPollService(db *gorm.DB, notifier Notifier) *PollService {
	return &PollService{
		db:           db,
		chats:        repoChat.NewChatRepository(db),
		participants: repoChat.NewParticipantRepository(db),
		messages:     repoChat.NewMessageRepository(db),
		polls:        repoChat.NewPollRepository(db),
		notifier:     notifier,
	}
}

// Create persists the poll with its options and a type=poll message
// referencing it, atomically, then broadcasts the message.
func (s *PollService) Create(chatID, creatorID string, input dto.CreatePollInput) (*dto.PollView, error) {
	if len(input.Options) < 2 {
		return nil, apperrors.ErrPollNeedsOptions
	}
	c, err := s.chats.FindByID(chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if !c.IsGroup {
		return nil, apperrors.ErrNotGroupChat
	}
	ok, err := s.participants.IsParticipant(chatID, creatorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	now := time.Now()
	poll := &modelChat.Poll{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		CreatorID: creatorID,
		Question:  input.Question,
		CreatedAt: now,
	}
	for _, text := range input.Options {
		poll.Options = append(poll.Options, modelChat.PollOption{
			ID:     uuid.New().String(),
			PollID: poll.ID,
			Text:   text,
		})
	}

	metadata, err := modelChat.EncodeMetadata(&modelChat.PollMetadata{PollID: poll.ID})
	if err != nil {
		return nil, err
	}
	msg := &modelChat.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		SenderID:  &creatorID,
		Type:      modelChat.MessageTypePoll,
		Content:   input.Question,
		Metadata:  metadata,
		CreatedAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.polls.WithTx(tx).Create(poll); err != nil {
			return err
		}
		if err := s.messages.WithTx(tx).Create(msg); err != nil {
			return err
		}
		return s.chats.WithTx(tx).Touch(chatID)
	})
	if err != nil {
		return nil, err
	}

	full, err := s.messages.FindByID(msg.ID)
	if err != nil {
		return nil, err
	}
	if view, err := messageView(full); err == nil {
		s.notifier.BroadcastToChat(chatID, EventMessageNew, view)
	}
	return s.hydratePoll(poll)
}

// Vote casts or replaces the user's vote, then broadcasts fresh tallies
// to the chat's room.
func (s *PollService) Vote(pollID, optionID, userID string) (*dto.PollView, error) {
	poll, err := s.polls.FindByID(pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, apperrors.ErrPollNotFound
	}
	ok, err := s.participants.IsParticipant(poll.ChatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}
	opt, err := s.polls.FindOption(pollID, optionID)
	if err != nil {
		return nil, err
	}
	if opt == nil {
		return nil, apperrors.ErrPollOptionNotFound
	}

	if err := s.polls.SaveVote(pollID, userID, optionID); err != nil {
		return nil, err
	}
	view, err := s.hydratePoll(poll)
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastToChat(poll.ChatID, EventPollVote, map[string]any{
		"pollId":   pollID,
		"chatId":   poll.ChatID,
		"userId":   userID,
		"optionId": optionID,
		"poll":     view,
	})
	return view, nil
}

// Get returns the hydrated poll; participants only.
func (s *PollService) Get(pollID, requesterID string) (*dto.PollView, error) {
	poll, err := s.polls.FindByID(pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, apperrors.ErrPollNotFound
	}
	ok, err := s.participants.IsParticipant(poll.ChatID, requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}
	return s.hydratePoll(poll)
}

func (s *PollService) hydratePoll(poll *modelChat.Poll) (*dto.PollView, error) {
	tallies, err := s.polls.Tally(poll.ID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(tallies))
	var total int64
	for _, t := range tallies {
		counts[t.OptionID] = t.Count
		total += t.Count
	}
	view := &dto.PollView{
		ID:         poll.ID,
		ChatID:     poll.ChatID,
		CreatorID:  poll.CreatorID,
		Question:   poll.Question,
		Options:    make([]dto.PollOptionView, 0, len(poll.Options)),
		TotalVotes: total,
		CreatedAt:  poll.CreatedAt,
		ExpiresAt:  poll.ExpiresAt,
	}
	for _, opt := range poll.Options {
		view.Options = append(view.Options, dto.PollOptionView{
			ID:    opt.ID,
			Text:  opt.Text,
			Count: counts[opt.ID],
		})
	}
	return view, nil
}
