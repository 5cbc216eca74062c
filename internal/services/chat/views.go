package chat

import (
	"sort"
	"strings"

	"loopchat_backend/internal/config"
	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/models"
	modelChat "loopchat_backend/internal/models/chat"
)

// Hydration: model rows -> client-facing views. Avatar paths stored as
// relative keys are prefixed with the configured files base URL.

func normalizeAvatarURL(url *string) *string {
	if url == nil || *url == "" {
		return url
	}
	if strings.HasPrefix(*url, "http://") || strings.HasPrefix(*url, "https://") {
		return url
	}
	base := strings.TrimSuffix(config.GetConfig().Files.BaseURL, "/")
	full := base + "/" + strings.TrimPrefix(*url, "/")
	return &full
}

func userView(u *models.User) *dto.UserView {
	if u == nil {
		return nil
	}
	return &dto.UserView{
		ID:         u.ID,
		Name:       u.Name,
		AvatarURL:  normalizeAvatarURL(u.AvatarURL),
		IsOnline:   u.IsOnline,
		LastSeenAt: u.LastSeenAt,
	}
}

// reactionGroups aggregates raw reaction rows into per-emoji groups,
// sorted by emoji for a stable wire shape.
func reactionGroups(reactions []modelChat.MessageReaction) []dto.ReactionGroup {
	byEmoji := make(map[string][]string)
	for _, r := range reactions {
		byEmoji[r.Emoji] = append(byEmoji[r.Emoji], r.UserID)
	}
	groups := make([]dto.ReactionGroup, 0, len(byEmoji))
	for emoji, users := range byEmoji {
		groups = append(groups, dto.ReactionGroup{Emoji: emoji, Count: len(users), Users: users})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Emoji < groups[j].Emoji })
	return groups
}

func messageView(m *modelChat.Message) (*dto.MessageView, error) {
	meta, err := modelChat.DecodeMetadata(m.Type, m.Metadata)
	if err != nil {
		return nil, err
	}
	view := &dto.MessageView{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Sender:    userView(m.Sender),
		Type:      string(m.Type),
		Content:   m.Content,
		Metadata:  meta,
		Pinned:    m.Pinned,
		Reactions: reactionGroups(m.Reactions),
		CreatedAt: m.CreatedAt,
	}
	if m.ReplyTo != nil {
		reply := &dto.ReplyView{ID: m.ReplyTo.ID, Content: m.ReplyTo.Content}
		if m.ReplyTo.Sender != nil {
			reply.SenderName = m.ReplyTo.Sender.Name
		}
		view.ReplyTo = reply
	}
	return view, nil
}

// BuildMessageView hydrates a fully-preloaded message row; exported for
// callers outside the service layer (the scheduler worker).
func BuildMessageView(m *modelChat.Message) (*dto.MessageView, error) {
	return messageView(m)
}

func messageViews(msgs []modelChat.Message) ([]dto.MessageView, error) {
	views := make([]dto.MessageView, 0, len(msgs))
	for i := range msgs {
		v, err := messageView(&msgs[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func participantViews(ps []modelChat.ChatParticipant) []dto.ParticipantView {
	views := make([]dto.ParticipantView, 0, len(ps))
	for _, p := range ps {
		v := dto.ParticipantView{
			UserID:   p.UserID,
			IsAdmin:  p.IsAdmin,
			JoinedAt: p.JoinedAt,
		}
		if p.User != nil {
			v.Name = p.User.Name
			v.AvatarURL = normalizeAvatarURL(p.User.AvatarURL)
			v.IsOnline = p.User.IsOnline
			v.LastSeenAt = p.User.LastSeenAt
		}
		views = append(views, v)
	}
	return views
}

func chatView(c *modelChat.Chat, lastMessage *dto.MessageView) *dto.ChatView {
	view := &dto.ChatView{
		ID:           c.ID,
		Name:         c.Name,
		AvatarURL:    normalizeAvatarURL(c.AvatarURL),
		IsGroup:      c.IsGroup,
		Participants: participantViews(c.Participants),
		Tags:         make([]string, 0, len(c.Tags)),
		LastMessage:  lastMessage,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.Settings != nil {
		view.Settings = &dto.ChatSettingsView{
			OnlyAdminsCanAddMembers: c.Settings.OnlyAdminsCanAddMembers,
			OnlyAdminsCanChangeInfo: c.Settings.OnlyAdminsCanChangeInfo,
			OnlyAdminsCanSend:       c.Settings.OnlyAdminsCanSend,
			Muted:                   c.Settings.Muted,
		}
	}
	for _, ct := range c.Tags {
		if ct.Tag != nil {
			view.Tags = append(view.Tags, ct.Tag.Name)
		}
	}
	return view
}
