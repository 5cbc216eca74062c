package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/email"
	"loopchat_backend/internal/logger"
	"loopchat_backend/internal/models"
	modelChat "loopchat_backend/internal/models/chat"
	"loopchat_backend/internal/repositories"
	repoChat "loopchat_backend/internal/repositories/chat"
	"loopchat_backend/pkg/apperrors"
)

// ChatService owns chat lifecycle and the group membership state machine.
// Every multi-step membership mutation runs in a single transaction with
// the chat's participant rows locked, so concurrent admin-count checks
// serialize instead of racing.
type ChatService struct {
	db           *gorm.DB
	chats        *repoChat.ChatRepository
	participants *repoChat.ParticipantRepository
	messages     *repoChat.MessageRepository
	reactions    *repoChat.MessageReactionRepository
	polls        *repoChat.PollRepository
	scheduled    *repoChat.ScheduledMessageRepository
	tags         *repoChat.TagRepository
	actions      *repoChat.ActionLogRepository
	users        *repositories.UserRepository
	notifier     Notifier
	mail         email.Provider
}

func NewChatService(db *gorm.DB, notifier Notifier, mail email.Provider) *ChatService {
	return &ChatService{
		db:           db,
		chats:        repoChat.NewChatRepository(db),
		participants: repoChat.NewParticipantRepository(db),
		messages:     repoChat.NewMessageRepository(db),
		reactions:    repoChat.NewMessageReactionRepository(db),
		polls:        repoChat.NewPollRepository(db),
		scheduled:    repoChat.NewScheduledMessageRepository(db),
		tags:         repoChat.NewTagRepository(db),
		actions:      repoChat.NewActionLogRepository(db),
		users:        repositories.NewUserRepository(db),
		notifier:     notifier,
		mail:         mail,
	}
}

func (s *ChatService) loadChat(chatID string) (*modelChat.Chat, error) {
	c, err := s.chats.FindByID(chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChatService) hydrateChat(c *modelChat.Chat) (*dto.ChatView, error) {
	last, err := s.messages.LastByChat(c.ID)
	if err != nil {
		return nil, err
	}
	var lastView *dto.MessageView
	if last != nil {
		lastView, err = messageView(last)
		if err != nil {
			return nil, err
		}
	}
	return chatView(c, lastView), nil
}

// HydratedChat reloads and hydrates a chat; requester must be a member.
func (s *ChatService) HydratedChat(chatID, requesterID string) (*dto.ChatView, error) {
	c, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	ok, err := s.participants.IsParticipant(chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}
	return s.hydrateChat(c)
}

// IsMember reports whether the user participates in the chat.
func (s *ChatService) IsMember(chatID, userID string) (bool, error) {
	return s.participants.IsParticipant(chatID, userID)
}

// GetUserChats returns the user's hydrated chat list, most recently
// active first.
func (s *ChatService) GetUserChats(userID string) ([]dto.ChatView, error) {
	chats, err := s.chats.FindAllByUser(userID)
	if err != nil {
		return nil, err
	}
	views := make([]dto.ChatView, 0, len(chats))
	for i := range chats {
		v, err := s.hydrateChat(&chats[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// CreateChat creates a group, or a direct chat with DM dedup: an existing
// two-party chat with the same participant set is returned unchanged
// regardless of id order.
func (s *ChatService) CreateChat(creatorID string, input dto.CreateChatInput) (*dto.ChatView, error) {
	ids := dedupeWithCreator(creatorID, input.ParticipantIDs)

	if !input.IsGroup {
		// Direct chats are unnamed; the client renders the counterpart.
		input.Name = nil
		if len(ids) != 2 {
			return nil, apperrors.NewBadRequestError("a direct chat requires exactly two participants")
		}
		existing, err := s.chats.FindDirectChat(ids[0], ids[1])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.HydratedChat(existing.ID, creatorID)
		}
	}

	found, err := s.users.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, apperrors.ErrUserNotFound
	}

	now := time.Now()
	c := &modelChat.Chat{
		ID:        uuid.New().String(),
		Name:      input.Name,
		AvatarURL: input.AvatarURL,
		IsGroup:   input.IsGroup,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.chats.WithTx(tx).Create(c); err != nil {
			return err
		}
		ps := make([]modelChat.ChatParticipant, 0, len(ids))
		for i, id := range ids {
			ps = append(ps, modelChat.ChatParticipant{
				ID:      uuid.New().String(),
				ChatID:  c.ID,
				UserID:  id,
				IsAdmin: id == creatorID,
				// Staggered so join order stays a usable promotion tie-break.
				JoinedAt: now.Add(time.Duration(i) * time.Millisecond),
			})
		}
		if err := s.participants.WithTx(tx).AddMany(ps); err != nil {
			return err
		}
		if input.IsGroup {
			return s.chats.WithTx(tx).SaveSettings(&modelChat.ChatSettings{ChatID: c.ID, UpdatedAt: now})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full, err := s.loadChat(c.ID)
	if err != nil {
		return nil, err
	}
	view, err := s.hydrateChat(full)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id != creatorID {
			s.notifier.SendToUser(id, EventChatNew, view)
		}
	}
	return view, nil
}

// AddMembers inserts the given users as non-admin members, skipping ones
// already in the chat. Honors the onlyAdminsCanAddMembers setting.
func (s *ChatService) AddMembers(chatID, requesterID string, userIDs []string) (*dto.ChatView, error) {
	c, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	if !c.IsGroup {
		return nil, apperrors.ErrNotGroupChat
	}
	requester, err := s.participants.Find(chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if c.Settings != nil && c.Settings.OnlyAdminsCanAddMembers && !requester.IsAdmin {
		return nil, apperrors.ErrMemberAddRestricted
	}

	candidates := dedupe(userIDs)
	found, err := s.users.FindByIDs(candidates)
	if err != nil {
		return nil, err
	}
	if len(found) != len(candidates) {
		return nil, apperrors.ErrUserNotFound
	}
	usersByID := make(map[string]models.User, len(found))
	for _, u := range found {
		usersByID[u.ID] = u
	}

	var added []models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		pr := s.participants.WithTx(tx)
		now := time.Now()
		for i, id := range candidates {
			member, err := pr.IsParticipant(chatID, id)
			if err != nil {
				return err
			}
			if member {
				continue
			}
			p := &modelChat.ChatParticipant{
				ID:       uuid.New().String(),
				ChatID:   chatID,
				UserID:   id,
				JoinedAt: now.Add(time.Duration(i) * time.Millisecond),
			}
			if err := pr.Add(p); err != nil {
				return err
			}
			added = append(added, usersByID[id])
		}
		if len(added) == 0 {
			return nil
		}
		addedIDs := make([]string, 0, len(added))
		for _, u := range added {
			addedIDs = append(addedIDs, u.ID)
		}
		return s.logAction(tx, chatID, requesterID, modelChat.ActionMemberAdded, map[string]any{"user_ids": addedIDs})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	view, err := s.hydrateChat(full)
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		s.notifier.BroadcastToChat(chatID, EventChatUpdated, view)
		for _, u := range added {
			s.notifier.SendToUser(u.ID, EventChatNew, view)
			go s.sendInviteEmail(u, full)
		}
	}
	return view, nil
}

// RemoveMember is the shared path for leaving and kicking. Returns the
// updated chat view, or nil when the chat was deleted with its last
// participant.
func (s *ChatService) RemoveMember(chatID, targetID, requesterID string) (*dto.ChatView, error) {
	var (
		chatDeleted bool
		sysMessages []*modelChat.Message
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cr := s.chats.WithTx(tx)
		pr := s.participants.WithTx(tx)
		mr := s.messages.WithTx(tx)

		var c modelChat.Chat
		if err := tx.First(&c, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrChatNotFound
			}
			return err
		}
		if !c.IsGroup {
			return apperrors.ErrNotGroupChat
		}

		ps, err := pr.ListByChatForUpdate(chatID)
		if err != nil {
			return err
		}
		var target *modelChat.ChatParticipant
		requesterIsMember := false
		adminCount := 0
		for i := range ps {
			if ps[i].UserID == targetID {
				target = &ps[i]
			}
			if ps[i].UserID == requesterID {
				requesterIsMember = true
			}
			if ps[i].IsAdmin {
				adminCount++
			}
		}
		if target == nil || !requesterIsMember {
			return apperrors.ErrNotParticipant
		}

		isTargetAdmin := target.IsAdmin
		if isTargetAdmin && targetID != requesterID {
			return apperrors.ErrCannotRemoveAdmin
		}
		if adminCount == 1 && isTargetAdmin && targetID != requesterID {
			return apperrors.ErrCannotRemoveLastAdmin
		}

		targetUser, err := s.users.FindByID(targetID)
		if err != nil {
			return err
		}

		// Sole admin leaving hands the chat to the earliest-joined member
		// before the removal happens.
		if adminCount == 1 && isTargetAdmin && targetID == requesterID && len(ps) > 1 {
			heir := earliestOther(ps, targetID)
			if err := s.promoteInTx(tx, pr, mr, chatID, requesterID, heir.UserID, &sysMessages); err != nil {
				return err
			}
		}

		if err := pr.Remove(chatID, targetID); err != nil {
			return err
		}

		if len(ps)-1 == 0 {
			chatDeleted = true
			return s.deleteChatCascade(tx, chatID)
		}

		// An adminless group must never be observable, even if a new
		// removal rule slips past the checks above.
		admins, err := pr.CountAdmins(chatID)
		if err != nil {
			return err
		}
		if admins == 0 {
			heir := earliestOther(ps, targetID)
			if err := s.promoteInTx(tx, pr, mr, chatID, requesterID, heir.UserID, &sysMessages); err != nil {
				return err
			}
		}

		var content string
		action := modelChat.ActionMemberRemoved
		if targetID == requesterID {
			content = fmt.Sprintf("%s saiu do grupo", targetUser.Name)
			action = modelChat.ActionMemberLeft
		} else {
			content = fmt.Sprintf("%s foi removido do grupo", targetUser.Name)
		}
		msg := newSystemMessage(chatID, content)
		if err := mr.Create(msg); err != nil {
			return err
		}
		sysMessages = append(sysMessages, msg)

		if err := s.logAction(tx, chatID, requesterID, action, map[string]any{"user_id": targetID}); err != nil {
			return err
		}
		return cr.Touch(chatID)
	})
	if err != nil {
		return nil, err
	}

	if chatDeleted {
		payload := map[string]any{"chatId": chatID}
		s.notifier.BroadcastToChat(chatID, EventChatDeleted, payload)
		s.notifier.SendToUser(targetID, EventChatDeleted, payload)
		return nil, nil
	}

	// The removed user's connection must stop receiving room traffic
	// before the remaining members hear about the change.
	s.notifier.RemoveFromRoom(chatID, targetID)

	full, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	view, err := s.hydrateChat(full)
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastToChat(chatID, EventChatUpdated, view)
	for _, m := range sysMessages {
		if v, err := messageView(m); err == nil {
			s.notifier.BroadcastToChat(chatID, EventMessageNew, v)
		}
	}
	payload := map[string]any{"chatId": chatID}
	if targetID == requesterID {
		s.notifier.SendToUser(targetID, EventChatLeft, payload)
	} else {
		s.notifier.SendToUser(targetID, EventChatMemberRemoved, payload)
	}
	return view, nil
}

// Promote grants admin to a current participant. Idempotent when the
// target is already an admin.
func (s *ChatService) Promote(chatID, targetID, requesterID string) (*dto.ChatView, error) {
	var sysMessages []*modelChat.Message
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pr := s.participants.WithTx(tx)
		mr := s.messages.WithTx(tx)
		target, err := s.adminGuard(tx, pr, chatID, targetID, requesterID)
		if err != nil {
			return err
		}
		if target.IsAdmin {
			return nil
		}
		return s.promoteInTx(tx, pr, mr, chatID, requesterID, targetID, &sysMessages)
	})
	if err != nil {
		return nil, err
	}
	return s.broadcastMembershipChange(chatID, sysMessages)
}

// Demote revokes admin; demoting the sole admin is rejected with a
// conflict so the group never goes adminless.
func (s *ChatService) Demote(chatID, targetID, requesterID string) (*dto.ChatView, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pr := s.participants.WithTx(tx)
		target, err := s.adminGuard(tx, pr, chatID, targetID, requesterID)
		if err != nil {
			return err
		}
		if !target.IsAdmin {
			return nil
		}
		admins, err := pr.CountAdmins(chatID)
		if err != nil {
			return err
		}
		if admins == 1 {
			return apperrors.ErrSoleAdminDemotion
		}
		if err := pr.SetAdmin(chatID, targetID, false); err != nil {
			return err
		}
		return s.logAction(tx, chatID, requesterID, modelChat.ActionDemoted, map[string]any{"user_id": targetID})
	})
	if err != nil {
		return nil, err
	}
	return s.broadcastMembershipChange(chatID, nil)
}

// UpdateChat changes name/avatar/settings/tags. A provided tag list
// replaces the whole set. Honors the onlyAdminsCanChangeInfo setting.
func (s *ChatService) UpdateChat(chatID, requesterID string, input dto.UpdateChatInput) (*dto.ChatView, error) {
	c, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	requester, err := s.participants.Find(chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if c.Settings != nil && c.Settings.OnlyAdminsCanChangeInfo && !requester.IsAdmin {
		return nil, apperrors.ErrChatEditRestricted
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		cr := s.chats.WithTx(tx)
		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.AvatarURL != nil {
			updates["avatar_url"] = *input.AvatarURL
		}
		if err := cr.UpdateInfo(chatID, updates); err != nil {
			return err
		}
		if input.Settings != nil {
			st := c.Settings
			if st == nil {
				st = &modelChat.ChatSettings{ChatID: chatID}
			}
			applySettings(st, input.Settings)
			st.UpdatedAt = time.Now()
			if err := cr.SaveSettings(st); err != nil {
				return err
			}
		}
		if input.Tags != nil {
			tr := s.tags.WithTx(tx)
			tagRows, err := tr.EnsureTags(*input.Tags)
			if err != nil {
				return err
			}
			tagIDs := make([]string, 0, len(tagRows))
			for _, t := range tagRows {
				tagIDs = append(tagIDs, t.ID)
			}
			if err := tr.ReplaceChatTags(chatID, tagIDs); err != nil {
				return err
			}
		}
		return s.logAction(tx, chatID, requesterID, modelChat.ActionChatUpdated, nil)
	})
	if err != nil {
		return nil, err
	}

	full, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	view, err := s.hydrateChat(full)
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastToChat(chatID, EventChatUpdated, view)
	return view, nil
}

// DeleteChat tears down the chat and every dependent row. Group chats
// require an admin requester.
func (s *ChatService) DeleteChat(chatID, requesterID string) error {
	c, err := s.loadChat(chatID)
	if err != nil {
		return err
	}
	requester, err := s.participants.Find(chatID, requesterID)
	if err != nil {
		return err
	}
	if requester == nil {
		return apperrors.ErrNotParticipant
	}
	if c.IsGroup && !requester.IsAdmin {
		return apperrors.ErrAdminRequired
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.deleteChatCascade(tx, chatID)
	})
	if err != nil {
		return err
	}
	s.notifier.BroadcastToChat(chatID, EventChatDeleted, map[string]any{"chatId": chatID})
	return nil
}

// GetActionLog returns recent moderation entries; participants only.
func (s *ChatService) GetActionLog(chatID, requesterID string, limit int) ([]modelChat.ActionLog, error) {
	ok, err := s.participants.IsParticipant(chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}
	return s.actions.ListByChat(chatID, limit)
}

// adminGuard runs the shared promote/demote precondition checks and
// returns the locked target row.
func (s *ChatService) adminGuard(tx *gorm.DB, pr *repoChat.ParticipantRepository, chatID, targetID, requesterID string) (*modelChat.ChatParticipant, error) {
	var c modelChat.Chat
	if err := tx.First(&c, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrChatNotFound
		}
		return nil, err
	}
	if !c.IsGroup {
		return nil, apperrors.ErrNotGroupChat
	}
	requester, err := pr.Find(chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if !requester.IsAdmin {
		return nil, apperrors.ErrAdminRequired
	}
	target, err := pr.FindForUpdate(chatID, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperrors.ErrNotParticipant
	}
	return target, nil
}

// promoteInTx flips the admin flag and emits the promotion system message.
func (s *ChatService) promoteInTx(tx *gorm.DB, pr *repoChat.ParticipantRepository, mr *repoChat.MessageRepository, chatID, actorID, targetID string, sysMessages *[]*modelChat.Message) error {
	if err := pr.SetAdmin(chatID, targetID, true); err != nil {
		return err
	}
	target, err := s.users.FindByID(targetID)
	if err != nil {
		return err
	}
	msg := newSystemMessage(chatID, fmt.Sprintf("%s foi promovido a administrador do grupo", target.Name))
	if err := mr.Create(msg); err != nil {
		return err
	}
	*sysMessages = append(*sysMessages, msg)
	return s.logAction(tx, chatID, actorID, modelChat.ActionPromoted, map[string]any{"user_id": targetID})
}

func (s *ChatService) broadcastMembershipChange(chatID string, sysMessages []*modelChat.Message) (*dto.ChatView, error) {
	full, err := s.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	view, err := s.hydrateChat(full)
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastToChat(chatID, EventChatUpdated, view)
	for _, m := range sysMessages {
		if v, err := messageView(m); err == nil {
			s.notifier.BroadcastToChat(chatID, EventMessageNew, v)
		}
	}
	return view, nil
}

// deleteChatCascade removes the chat and every dependent row. Done
// explicitly because not every supported driver enforces FK cascades.
func (s *ChatService) deleteChatCascade(tx *gorm.DB, chatID string) error {
	if err := s.reactions.WithTx(tx).DeleteByChat(chatID); err != nil {
		return err
	}
	if err := s.messages.WithTx(tx).DeleteByChat(chatID); err != nil {
		return err
	}
	if err := s.polls.WithTx(tx).DeleteByChat(chatID); err != nil {
		return err
	}
	if err := s.scheduled.WithTx(tx).DeleteByChat(chatID); err != nil {
		return err
	}
	if err := s.tags.WithTx(tx).ReplaceChatTags(chatID, nil); err != nil {
		return err
	}
	if err := s.actions.WithTx(tx).DeleteByChat(chatID); err != nil {
		return err
	}
	if err := s.chats.WithTx(tx).DeleteSettings(chatID); err != nil {
		return err
	}
	if err := s.participants.WithTx(tx).RemoveAllByChat(chatID); err != nil {
		return err
	}
	return s.chats.WithTx(tx).Delete(chatID)
}

func (s *ChatService) logAction(tx *gorm.DB, chatID, actorID, action string, details map[string]any) error {
	var raw datatypes.JSON
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		raw = datatypes.JSON(b)
	}
	return s.actions.WithTx(tx).Append(&modelChat.ActionLog{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		ActorID:   actorID,
		Action:    action,
		Details:   raw,
		CreatedAt: time.Now(),
	})
}

func (s *ChatService) sendInviteEmail(u models.User, c *modelChat.Chat) {
	if s.mail == nil {
		return
	}
	name := "a group chat"
	if c.Name != nil && *c.Name != "" {
		name = *c.Name
	}
	subject := fmt.Sprintf("You were added to %s", name)
	body := fmt.Sprintf("<p>Hi %s,</p><p>You were added to <b>%s</b>.</p>", u.Name, name)
	if err := s.mail.Send(u.Email, subject, body); err != nil {
		logger.Warn("invite email failed", "user_id", u.ID, "chat_id", c.ID, "error", err)
	}
}

func newSystemMessage(chatID, content string) *modelChat.Message {
	return &modelChat.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Type:      modelChat.MessageTypeSystem,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// earliestOther returns the earliest-joined participant that is not the
// excluded user; ps must already be sorted by join time.
func earliestOther(ps []modelChat.ChatParticipant, excludeUserID string) *modelChat.ChatParticipant {
	for i := range ps {
		if ps[i].UserID != excludeUserID {
			return &ps[i]
		}
	}
	return nil
}

func applySettings(st *modelChat.ChatSettings, in *dto.ChatSettingsInput) {
	if in.OnlyAdminsCanAddMembers != nil {
		st.OnlyAdminsCanAddMembers = *in.OnlyAdminsCanAddMembers
	}
	if in.OnlyAdminsCanChangeInfo != nil {
		st.OnlyAdminsCanChangeInfo = *in.OnlyAdminsCanChangeInfo
	}
	if in.OnlyAdminsCanSend != nil {
		st.OnlyAdminsCanSend = *in.OnlyAdminsCanSend
	}
	if in.Muted != nil {
		st.Muted = *in.Muted
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func dedupeWithCreator(creatorID string, ids []string) []string {
	return dedupe(append([]string{creatorID}, ids...))
}
