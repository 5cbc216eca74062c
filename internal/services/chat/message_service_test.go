package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopchat_backend/internal/dto"
	modelChat "loopchat_backend/internal/models/chat"
	"loopchat_backend/pkg/apperrors"
)

func newTestMessageService(t *testing.T) (*MessageService, *ChatService, *recordingNotifier) {
	t.Helper()
	chats, notifier, db := newTestChatService(t)
	return NewMessageService(db, notifier), chats, notifier
}

func TestSend_BroadcastsHydratedMessage(t *testing.T) {
	msgs, chats, notifier := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	sent, err := msgs.Send(alice.ID, dto.SendMessageInput{
		ChatID:  view.ID,
		Content: "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, string(modelChat.MessageTypeText), sent.Type)
	require.NotNil(t, sent.Sender)
	assert.Equal(t, alice.Name, sent.Sender.Name)

	events := notifier.eventsNamed(EventMessageNew)
	require.NotEmpty(t, events)
	assert.Equal(t, "chat:"+view.ID, events[len(events)-1].Target)
}

func TestSend_ResolvesReplyTo(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	original, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: "first"})
	require.NoError(t, err)

	reply, err := msgs.Send(bob.ID, dto.SendMessageInput{
		ChatID:    view.ID,
		Content:   "answer",
		ReplyToID: &original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, original.ID, reply.ReplyTo.ID)
	assert.Equal(t, "first", reply.ReplyTo.Content)
	assert.Equal(t, alice.Name, reply.ReplyTo.SenderName)
}

func TestSend_ReplyToMustBeInSameChat(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	g1 := createTestGroup(t, chats, alice, bob)
	g2 := createTestGroup(t, chats, alice, bob)

	other, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: g2.ID, Content: "elsewhere"})
	require.NoError(t, err)

	_, err = msgs.Send(alice.ID, dto.SendMessageInput{
		ChatID:    g1.ID,
		Content:   "cross reply",
		ReplyToID: &other.ID,
	})
	assert.True(t, errors.Is(err, apperrors.ErrMessageNotFound))
}

func TestSend_RestrictedToAdmins(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	restrict := true
	_, err := chats.UpdateChat(view.ID, alice.ID, dto.UpdateChatInput{
		Settings: &dto.ChatSettingsInput{OnlyAdminsCanSend: &restrict},
	})
	require.NoError(t, err)

	_, err = msgs.Send(bob.ID, dto.SendMessageInput{ChatID: view.ID, Content: "hi"})
	assert.True(t, errors.Is(err, apperrors.ErrSendRestricted))

	_, err = msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: "hi"})
	assert.NoError(t, err)
}

func TestSend_BareURLBecomesLinkMessage(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	sent, err := msgs.Send(alice.ID, dto.SendMessageInput{
		ChatID:  view.ID,
		Content: "https://example.com/article",
	})
	require.NoError(t, err)
	assert.Equal(t, string(modelChat.MessageTypeLink), sent.Type)
}

func TestHistory_OrderedAndParticipantOnly(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	outsider := createTestUser(t, chats.db, "Eve")
	view := createTestGroup(t, chats, alice, bob)

	for _, content := range []string{"one", "two", "three"} {
		_, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: content})
		require.NoError(t, err)
	}

	history, err := msgs.History(view.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Content)
	assert.Equal(t, "three", history[2].Content)

	_, err = msgs.History(view.ID, outsider.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotParticipant))
}

func TestDelete_SenderOrAdminOnly(t *testing.T) {
	msgs, chats, notifier := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	dana := createTestUser(t, chats.db, "Dana")
	view := createTestGroup(t, chats, alice, bob, dana)

	sent, err := msgs.Send(bob.ID, dto.SendMessageInput{ChatID: view.ID, Content: "oops"})
	require.NoError(t, err)

	// A random member may not delete someone else's message.
	err = msgs.Delete(sent.ID, view.ID, dana.ID)
	assert.True(t, errors.Is(err, apperrors.ErrCannotDeleteMessage))

	// The sender may.
	require.NoError(t, msgs.Delete(sent.ID, view.ID, bob.ID))
	assert.NotEmpty(t, notifier.eventsNamed(EventMessageDeleted))

	err = msgs.Delete(sent.ID, view.ID, bob.ID)
	assert.True(t, errors.Is(err, apperrors.ErrMessageNotFound))

	// An admin may delete anyone's message.
	sent, err = msgs.Send(bob.ID, dto.SendMessageInput{ChatID: view.ID, Content: "again"})
	require.NoError(t, err)
	assert.NoError(t, msgs.Delete(sent.ID, view.ID, alice.ID))
}

func TestPin_AdminOnlyAndIdempotent(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	sent, err := msgs.Send(bob.ID, dto.SendMessageInput{ChatID: view.ID, Content: "keep"})
	require.NoError(t, err)

	_, err = msgs.Pin(sent.ID, view.ID, true, bob.ID)
	assert.True(t, errors.Is(err, apperrors.ErrAdminRequired))

	pinned, err := msgs.Pin(sent.ID, view.ID, true, alice.ID)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	// Pinning again is a no-op, not an error.
	pinned, err = msgs.Pin(sent.ID, view.ID, true, alice.ID)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	list, err := msgs.ListPinned(view.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	unpinned, err := msgs.Pin(sent.ID, view.ID, false, alice.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)

	// Unpinning an unpinned message is also a no-op.
	_, err = msgs.Pin(sent.ID, view.ID, false, alice.ID)
	assert.NoError(t, err)
}

func TestDelete_RemovesPinnedAndReactions(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	sent, err := msgs.Send(bob.ID, dto.SendMessageInput{ChatID: view.ID, Content: "pin me"})
	require.NoError(t, err)
	_, err = msgs.Pin(sent.ID, view.ID, true, alice.ID)
	require.NoError(t, err)

	reactions := NewReactionService(chats.db, NopNotifier{})
	_, err = reactions.Toggle(sent.ID, view.ID, alice.ID, "👍")
	require.NoError(t, err)

	require.NoError(t, msgs.Delete(sent.ID, view.ID, alice.ID))

	list, err := msgs.ListPinned(view.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	var count int64
	require.NoError(t, chats.db.Model(&modelChat.MessageReaction{}).
		Where("message_id = ?", sent.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	msgs, chats, _ := newTestMessageService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	_, err := msgs.Send(alice.ID, dto.SendMessageInput{ChatID: view.ID, Content: "Deploy on Friday"})
	require.NoError(t, err)
	_, err = msgs.Send(bob.ID, dto.SendMessageInput{ChatID: view.ID, Content: "weekend plans"})
	require.NoError(t, err)

	found, err := msgs.Search(view.ID, alice.ID, "friday")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Deploy on Friday", found[0].Content)
}
