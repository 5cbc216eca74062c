package dto

import "time"

// CreateChatInput creates a direct chat (two participants, is_group=false)
// or a group. The creator is always included as a participant.
type CreateChatInput struct {
	Name           *string  `json:"name"`
	AvatarURL      *string  `json:"avatarUrl"`
	IsGroup        bool     `json:"isGroup"`
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1"`
}

// AddMembersInput adds users to a group chat as non-admin members.
type AddMembersInput struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// RemoveMemberInput removes a participant; self-removal means leaving.
type RemoveMemberInput struct {
	UserID string `json:"userId" binding:"required"`
}

// ChatSettingsInput is a partial settings update; nil fields are untouched.
type ChatSettingsInput struct {
	OnlyAdminsCanAddMembers *bool `json:"onlyAdminsCanAddMembers"`
	OnlyAdminsCanChangeInfo *bool `json:"onlyAdminsCanChangeInfo"`
	OnlyAdminsCanSend       *bool `json:"onlyAdminsCanSend"`
	Muted                   *bool `json:"muted"`
}

// UpdateChatInput updates name/avatar/settings/tags. A non-nil Tags slice
// replaces the whole tag set.
type UpdateChatInput struct {
	Name      *string            `json:"name"`
	AvatarURL *string            `json:"avatarUrl"`
	Settings  *ChatSettingsInput `json:"settings"`
	Tags      *[]string          `json:"tags"`
}

// ParticipantView is one chat member with presence flattened in.
type ParticipantView struct {
	UserID     string     `json:"userId"`
	Name       string     `json:"name"`
	AvatarURL  *string    `json:"avatarUrl,omitempty"`
	IsAdmin    bool       `json:"isAdmin"`
	IsOnline   bool       `json:"isOnline"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	JoinedAt   time.Time  `json:"joinedAt"`
}

// ChatSettingsView mirrors the chat's settings row.
type ChatSettingsView struct {
	OnlyAdminsCanAddMembers bool `json:"onlyAdminsCanAddMembers"`
	OnlyAdminsCanChangeInfo bool `json:"onlyAdminsCanChangeInfo"`
	OnlyAdminsCanSend       bool `json:"onlyAdminsCanSend"`
	Muted                   bool `json:"muted"`
}

// ChatView is the hydrated chat sent to clients.
type ChatView struct {
	ID           string            `json:"id"`
	Name         *string           `json:"name,omitempty"`
	AvatarURL    *string           `json:"avatarUrl,omitempty"`
	IsGroup      bool              `json:"isGroup"`
	Participants []ParticipantView `json:"participants"`
	Settings     *ChatSettingsView `json:"settings,omitempty"`
	Tags         []string          `json:"tags"`
	LastMessage  *MessageView      `json:"lastMessage,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
