package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"loopchat_backend/internal/cache"
	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/logger"
	"loopchat_backend/internal/repositories"
	"loopchat_backend/pkg/apperrors"
)

// PresenceService tracks online/offline state. The users table is
// authoritative; the redis mirror is best-effort.
type PresenceService struct {
	users    *repositories.UserRepository
	chats    *ChatService
	presence *cache.PresenceCache
	notifier Notifier
}

func NewPresenceService(db *gorm.DB, chats *ChatService, presence *cache.PresenceCache, notifier Notifier) *PresenceService {
	return &PresenceService{
		users:    repositories.NewUserRepository(db),
		chats:    chats,
		presence: presence,
		notifier: notifier,
	}
}

// Login marks the user online, tells everyone else, and returns the
// hydrated chat list for the initial client sync.
func (s *PresenceService) Login(userID string) ([]dto.ChatView, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	if err := s.users.SetOnline(userID, true, nil); err != nil {
		return nil, err
	}
	if err := s.presence.SetOnline(context.Background(), userID); err != nil {
		logger.Warn("presence cache update failed", "user_id", userID, "error", err)
	}
	s.notifier.BroadcastAllExcept(userID, EventUserStatus, dto.UserStatus{
		UserID:   userID,
		IsOnline: true,
	})
	return s.chats.GetUserChats(userID)
}

// Disconnect stamps last-seen and broadcasts offline. Unknown users are
// a no-op: the socket may close before login ever happened.
func (s *PresenceService) Disconnect(userID string) error {
	if userID == "" {
		return nil
	}
	if _, err := s.users.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	now := time.Now()
	if err := s.users.SetOnline(userID, false, &now); err != nil {
		return err
	}
	if err := s.presence.SetOffline(context.Background(), userID, now); err != nil {
		logger.Warn("presence cache update failed", "user_id", userID, "error", err)
	}
	s.notifier.BroadcastAllExcept(userID, EventUserStatus, dto.UserStatus{
		UserID:     userID,
		IsOnline:   false,
		LastSeenAt: &now,
	})
	return nil
}
