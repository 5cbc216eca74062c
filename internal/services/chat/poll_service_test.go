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

func newTestPollService(t *testing.T) (*PollService, *ChatService, *recordingNotifier) {
	t.Helper()
	chats, notifier, db := newTestChatService(t)
	return NewPollService(db, notifier), chats, notifier
}

func TestCreatePoll_RequiresAtLeastTwoOptions(t *testing.T) {
	polls, chats, _ := newTestPollService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	_, err := polls.Create(view.ID, alice.ID, dto.CreatePollInput{
		Question: "lunch?",
		Options:  []string{"pizza"},
	})
	assert.True(t, errors.Is(err, apperrors.ErrPollNeedsOptions))
}

func TestCreatePoll_EmitsPollMessage(t *testing.T) {
	polls, chats, notifier := newTestPollService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	poll, err := polls.Create(view.ID, alice.ID, dto.CreatePollInput{
		Question: "lunch?",
		Options:  []string{"pizza", "sushi"},
	})
	require.NoError(t, err)
	assert.Len(t, poll.Options, 2)
	assert.Zero(t, poll.TotalVotes)

	history, err := NewMessageService(chats.db, NopNotifier{}).History(view.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(modelChat.MessageTypePoll), history[0].Type)
	assert.Equal(t, "lunch?", history[0].Content)

	assert.NotEmpty(t, notifier.eventsNamed(EventMessageNew))
}

func TestCreatePoll_ParticipantsOnlyAndGroupsOnly(t *testing.T) {
	polls, chats, _ := newTestPollService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	outsider := createTestUser(t, chats.db, "Eve")
	view := createTestGroup(t, chats, alice, bob)

	_, err := polls.Create(view.ID, outsider.ID, dto.CreatePollInput{
		Question: "q", Options: []string{"a", "b"},
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotParticipant))

	dm, err := chats.CreateChat(alice.ID, dto.CreateChatInput{ParticipantIDs: []string{bob.ID}})
	require.NoError(t, err)
	_, err = polls.Create(dm.ID, alice.ID, dto.CreatePollInput{
		Question: "q", Options: []string{"a", "b"},
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotGroupChat))
}

func TestVote_LastVoteWins(t *testing.T) {
	polls, chats, notifier := newTestPollService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	poll, err := polls.Create(view.ID, alice.ID, dto.CreatePollInput{
		Question: "lunch?",
		Options:  []string{"pizza", "sushi"},
	})
	require.NoError(t, err)
	pizza, sushi := poll.Options[0], poll.Options[1]

	after, err := polls.Vote(poll.ID, pizza.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.TotalVotes)

	// Changing one's mind moves the vote, it does not add one.
	after, err = polls.Vote(poll.ID, sushi.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.TotalVotes)
	counts := map[string]int64{}
	for _, opt := range after.Options {
		counts[opt.ID] = opt.Count
	}
	assert.Zero(t, counts[pizza.ID])
	assert.Equal(t, int64(1), counts[sushi.ID])

	var rows int64
	require.NoError(t, chats.db.Model(&modelChat.PollVote{}).
		Where("poll_id = ? AND user_id = ?", poll.ID, bob.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	assert.NotEmpty(t, notifier.eventsNamed(EventPollVote))
}

func TestVote_OptionMustBelongToPoll(t *testing.T) {
	polls, chats, _ := newTestPollService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	view := createTestGroup(t, chats, alice, bob)

	first, err := polls.Create(view.ID, alice.ID, dto.CreatePollInput{
		Question: "a?", Options: []string{"1", "2"},
	})
	require.NoError(t, err)
	second, err := polls.Create(view.ID, alice.ID, dto.CreatePollInput{
		Question: "b?", Options: []string{"3", "4"},
	})
	require.NoError(t, err)

	_, err = polls.Vote(first.ID, second.Options[0].ID, bob.ID)
	assert.True(t, errors.Is(err, apperrors.ErrPollOptionNotFound))

	_, err = polls.Vote("missing", first.Options[0].ID, bob.ID)
	assert.True(t, errors.Is(err, apperrors.ErrPollNotFound))
}

func TestGetPoll_ParticipantsOnly(t *testing.T) {
	polls, chats, _ := newTestPollService(t)
	alice := createTestUser(t, chats.db, "Alice")
	bob := createTestUser(t, chats.db, "Bob")
	outsider := createTestUser(t, chats.db, "Eve")
	view := createTestGroup(t, chats, alice, bob)

	poll, err := polls.Create(view.ID, alice.ID, dto.CreatePollInput{
		Question: "q", Options: []string{"a", "b"},
	})
	require.NoError(t, err)

	got, err := polls.Get(poll.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, poll.ID, got.ID)

	_, err = polls.Get(poll.ID, outsider.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotParticipant))
}
