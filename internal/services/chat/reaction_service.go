package chat

import (
	"gorm.io/gorm"

	"loopchat_backend/internal/dto"
	repoChat "loopchat_backend/internal/repositories/chat"
	"loopchat_backend/pkg/apperrors"
)

// ReactionService toggles per-(message, user, emoji) reactions and
// recomputes aggregates for client reconciliation.
type ReactionService struct {
	participants *repoChat.ParticipantRepository
	messages     *repoChat.MessageRepository
	reactions    *repoChat.MessageReactionRepository
	notifier     Notifier
}

func NewReactionService(db *gorm.DB, notifier Notifier) *ReactionService {
	return &ReactionService{
		participants: repoChat.NewParticipantRepository(db),
		messages:     repoChat.NewMessageRepository(db),
		reactions:    repoChat.NewMessageReactionRepository(db),
		notifier:     notifier,
	}
}

// Toggle flips the reaction and returns the message's full recomputed
// aggregate. A repeated toggle flips state back; there is no retry
// dedupe at this layer.
func (s *ReactionService) Toggle(messageID, chatID, userID, emoji string) ([]dto.ReactionGroup, error) {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.ChatID != chatID {
		return nil, apperrors.ErrMessageNotFound
	}
	ok, err := s.participants.IsParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	added, err := s.reactions.Toggle(userID, messageID, emoji)
	if err != nil {
		return nil, err
	}
	rows, err := s.reactions.GetByMessageID(messageID)
	if err != nil {
		return nil, err
	}
	groups := reactionGroups(rows)

	s.notifier.BroadcastToChat(chatID, EventMessageReaction, map[string]any{
		"messageId": messageID,
		"chatId":    chatID,
		"userId":    userID,
		"emoji":     emoji,
		"added":     added,
		"reactions": groups,
	})
	return groups, nil
}
