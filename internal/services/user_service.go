package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/repositories"
	chatService "loopchat_backend/internal/services/chat"
	"loopchat_backend/pkg/apperrors"
)

type UserService struct {
	users    *repositories.UserRepository
	notifier chatService.Notifier
}

func NewUserService(db *gorm.DB, notifier chatService.Notifier) *UserService {
	return &UserService{
		users:    repositories.NewUserRepository(db),
		notifier: notifier,
	}
}

func (s *UserService) GetByID(userID string) (*dto.UserView, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &dto.UserView{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		AvatarURL:  user.AvatarURL,
		IsOnline:   user.IsOnline,
		LastSeenAt: user.LastSeenAt,
	}, nil
}

// Update applies a partial profile change and broadcasts the new profile
// to every other connected user.
func (s *UserService) Update(userID string, input dto.UpdateUserInput) (*dto.UserView, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}
	user.UpdatedAt = time.Now()
	if err := s.users.Update(user); err != nil {
		return nil, err
	}

	view := &dto.UserView{
		ID:         user.ID,
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		IsOnline:   user.IsOnline,
		LastSeenAt: user.LastSeenAt,
	}
	s.notifier.BroadcastAllExcept(userID, chatService.EventUserUpdated, view)
	return view, nil
}
