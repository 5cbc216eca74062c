package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopchat_backend/internal/dto"
	"loopchat_backend/pkg/apperrors"
)

func TestToggle_ReactUnreactReturnsToOriginalState(t *testing.T) {
	chats, notifier, db := newTestChatService(t)
	msgs := NewMessageService(db, notifier)
	reactions := NewReactionService(db, notifier)

	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	sent, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: "react to me"})
	require.NoError(t, err)

	groups, err := reactions.Toggle(sent.ID, view.ID, bob.ID, "🔥")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "🔥", groups[0].Emoji)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, []string{bob.ID}, groups[0].Users)

	// Toggling the same (user, message, emoji) again un-reacts.
	groups, err = reactions.Toggle(sent.ID, view.ID, bob.ID, "🔥")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestToggle_AggregatesAcrossUsersAndEmojis(t *testing.T) {
	chats, notifier, db := newTestChatService(t)
	msgs := NewMessageService(db, notifier)
	reactions := NewReactionService(db, notifier)

	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	dana := createTestUser(t, db, "Dana")
	view := createTestGroup(t, chats, alice, bob, dana)

	sent, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: "popular"})
	require.NoError(t, err)

	_, err = reactions.Toggle(sent.ID, view.ID, alice.ID, "👍")
	require.NoError(t, err)
	_, err = reactions.Toggle(sent.ID, view.ID, bob.ID, "👍")
	require.NoError(t, err)
	groups, err := reactions.Toggle(sent.ID, view.ID, dana.ID, "🎉")
	require.NoError(t, err)

	require.Len(t, groups, 2)
	byEmoji := map[string]dto.ReactionGroup{}
	for _, g := range groups {
		byEmoji[g.Emoji] = g
	}
	assert.Equal(t, 2, byEmoji["👍"].Count)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, byEmoji["👍"].Users)
	assert.Equal(t, 1, byEmoji["🎉"].Count)
}

func TestToggle_RequiresParticipantAndMessage(t *testing.T) {
	chats, notifier, db := newTestChatService(t)
	msgs := NewMessageService(db, notifier)
	reactions := NewReactionService(db, notifier)

	alice := createTestUser(t, db, "Alice")
	bob := createTestUser(t, db, "Bob")
	outsider := createTestUser(t, db, "Eve")
	view := createTestGroup(t, chats, alice, bob)

	sent, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: "hi"})
	require.NoError(t, err)

	_, err = reactions.Toggle(sent.ID, view.ID, outsider.ID, "👀")
	assert.True(t, errors.Is(err, apperrors.ErrNotParticipant))

	_, err = reactions.Toggle("missing", view.ID, bob.ID, "👀")
	assert.True(t, errors.Is(err, apperrors.ErrMessageNotFound))
}
