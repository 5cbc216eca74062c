package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loopchat_backend/internal/dto"
	modelChat "loopchat_backend/internal/models/chat"
	"loopchat_backend/internal/repositories"
	repoChat "loopchat_backend/internal/repositories/chat"
	"loopchat_backend/pkg/apperrors"
)

// MessageService owns message persistence, history hydration, deletion
// and pinning.
type MessageService struct {
	db           *gorm.DB
	chats        *repoChat.ChatRepository
	participants *repoChat.ParticipantRepository
	messages     *repoChat.MessageRepository
	reactions    *repoChat.MessageReactionRepository
	users        *repositories.UserRepository
	notifier     Notifier
}

func NewMessageService(db *gorm.DB, notifier Notifier) *MessageService {
	return &MessageService{
		db:           db,
		chats:        repoChat.NewChatRepository(db),
		participants: repoChat.NewParticipantRepository(db),
		messages:     repoChat.NewMessageRepository(db),
		reactions:    repoChat.NewMessageReactionRepository(db),
		users:        repositories.NewUserRepository(db),
		notifier:     notifier,
	}
}

// Send validates, persists and broadcasts a message, returning the
// hydrated view with its durable id assigned.
func (s *MessageService) Send(senderID string, input dto.SendMessageInput) (*dto.MessageView, error) {
	if _, err := s.users.FindByID(senderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	c, err := s.chats.FindByID(input.ChatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	sender, err := s.participants.Find(input.ChatID, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if c.Settings != nil && c.Settings.OnlyAdminsCanSend && !sender.IsAdmin {
		return nil, apperrors.ErrSendRestricted
	}

	msgType := modelChat.MessageType(input.Type)
	if input.Type == "" {
		msgType = modelChat.MessageTypeText
	}
	if !msgType.Valid() || msgType == modelChat.MessageTypeSystem {
		return nil, apperrors.NewBadRequestError("invalid message type")
	}

	// Bare URLs sent as text become link messages.
	if msgType == modelChat.MessageTypeText && isBareURL(input.Content) {
		msgType = modelChat.MessageTypeLink
	}

	metadata, err := s.resolveMetadata(msgType, input.Metadata)
	if err != nil {
		return nil, apperrors.NewBadRequestError("invalid message metadata")
	}

	if input.ReplyToID != nil {
		replyTo, err := s.messages.FindByID(*input.ReplyToID)
		if err != nil {
			return nil, err
		}
		if replyTo == nil || replyTo.ChatID != input.ChatID {
			return nil, apperrors.ErrMessageNotFound
		}
	}

	msg := &modelChat.Message{
		ID:        uuid.New().String(),
		ChatID:    input.ChatID,
		SenderID:  &senderID,
		Type:      msgType,
		Content:   input.Content,
		ReplyToID: input.ReplyToID,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.messages.WithTx(tx).Create(msg); err != nil {
			return err
		}
		return s.chats.WithTx(tx).Touch(input.ChatID)
	})
	if err != nil {
		return nil, err
	}

	full, err := s.messages.FindByID(msg.ID)
	if err != nil {
		return nil, err
	}
	view, err := messageView(full)
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastToChat(input.ChatID, EventMessageNew, view)
	return view, nil
}

// History returns the chat's messages in creation order, hydrated.
func (s *MessageService) History(chatID, requesterID string) ([]dto.MessageView, error) {
	if err := s.requireParticipant(chatID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.GetByChat(chatID)
	if err != nil {
		return nil, err
	}
	return messageViews(msgs)
}

// Delete hard-deletes a message; only the sender or a chat admin may.
// Reactions go with it and the pinned flag dies with the row.
func (s *MessageService) Delete(messageID, chatID, requesterID string) error {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.ChatID != chatID {
		return apperrors.ErrMessageNotFound
	}
	requester, err := s.participants.Find(chatID, requesterID)
	if err != nil {
		return err
	}
	if requester == nil {
		return apperrors.ErrNotParticipant
	}
	isSender := msg.SenderID != nil && *msg.SenderID == requesterID
	if !isSender && !requester.IsAdmin {
		return apperrors.ErrCannotDeleteMessage
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.reactions.WithTx(tx).DeleteByMessageID(messageID); err != nil {
			return err
		}
		return s.messages.WithTx(tx).Delete(messageID)
	})
	if err != nil {
		return err
	}
	s.notifier.BroadcastToChat(chatID, EventMessageDeleted, map[string]any{
		"messageId": messageID,
		"chatId":    chatID,
	})
	return nil
}

// Pin sets or clears the pinned flag; admins only, no-op when the flag
// already matches.
func (s *MessageService) Pin(messageID, chatID string, pin bool, requesterID string) (*dto.MessageView, error) {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.ChatID != chatID {
		return nil, apperrors.ErrMessageNotFound
	}
	requester, err := s.participants.Find(chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if !requester.IsAdmin {
		return nil, apperrors.ErrAdminRequired
	}

	if msg.Pinned != pin {
		if err := s.messages.SetPinned(messageID, pin); err != nil {
			return nil, err
		}
		msg.Pinned = pin
		s.notifier.BroadcastToChat(chatID, EventMessagePinned, map[string]any{
			"messageId": messageID,
			"chatId":    chatID,
			"pinned":    pin,
		})
	}
	return messageView(msg)
}

// ListPinned returns the chat's pinned messages; participants only.
func (s *MessageService) ListPinned(chatID, requesterID string) ([]dto.MessageView, error) {
	if err := s.requireParticipant(chatID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListPinned(chatID)
	if err != nil {
		return nil, err
	}
	return messageViews(msgs)
}

// Search does a case-insensitive content search; participants only.
func (s *MessageService) Search(chatID, requesterID, query string) ([]dto.MessageView, error) {
	if err := s.requireParticipant(chatID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.Search(chatID, query)
	if err != nil {
		return nil, err
	}
	return messageViews(msgs)
}

func (s *MessageService) requireParticipant(chatID, userID string) error {
	ok, err := s.participants.IsParticipant(chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotParticipant
	}
	return nil
}

// resolveMetadata validates raw metadata against the message type and
// re-encodes it in canonical form.
func (s *MessageService) resolveMetadata(t modelChat.MessageType, raw []byte) (datatypes.JSON, error) {
	if t == modelChat.MessageTypeLink {
		return modelChat.EncodeMetadata(&modelChat.LinkMetadata{IsLink: true})
	}
	decoded, err := modelChat.DecodeMetadata(t, datatypes.JSON(raw))
	if err != nil {
		return nil, err
	}
	return modelChat.EncodeMetadata(decoded)
}

func isBareURL(content string) bool {
	c := strings.TrimSpace(content)
	if !strings.HasPrefix(c, "http://") && !strings.HasPrefix(c, "https://") {
		return false
	}
	return !strings.ContainsAny(c, " \t\n")
}
