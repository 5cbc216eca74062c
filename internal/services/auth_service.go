package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loopchat_backend/internal/auth"
	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/models"
	"loopchat_backend/internal/repositories"
	"loopchat_backend/pkg/apperrors"
)

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{users: repositories.NewUserRepository(db)}
}

// Register creates an account and returns a signed token.
func (s *AuthService) Register(input dto.RegisterInput) (*dto.AuthResponse, error) {
	if _, err := s.users.FindByEmail(input.Email); err == nil {
		return nil, apperrors.ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return s.respond(user)
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.users.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.respond(user)
}

func (s *AuthService) respond(user *models.User) (*dto.AuthResponse, error) {
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: token,
		User: dto.UserView{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			AvatarURL:  user.AvatarURL,
			IsOnline:   user.IsOnline,
			LastSeenAt: user.LastSeenAt,
		},
	}, nil
}
