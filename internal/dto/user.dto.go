package dto

import "time"

// UpdateUserInput is a partial profile update; nil fields are untouched.
type UpdateUserInput struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// UserView is the public projection of a user.
type UserView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	AvatarURL  *string    `json:"avatarUrl,omitempty"`
	IsOnline   bool       `json:"isOnline"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// UserStatus is the payload of an online/offline broadcast.
type UserStatus struct {
	UserID     string     `json:"userId"`
	IsOnline   bool       `json:"isOnline"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}
