package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a bare client handle with no socket; close() is
// nil-safe so manager bookkeeping can be exercised without a network.
func newTestClient(userID string) *Client {
	return &Client{
		UserID: userID,
		Send:   make(chan any, sendBufferSize),
	}
}

func drain(c *Client) []OutgoingEvent {
	var out []OutgoingEvent
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, msg.(OutgoingEvent))
		default:
			return out
		}
	}
}

func TestRegister_EvictsPreviousConnection(t *testing.T) {
	m := NewManager()
	old := newTestClient("u1")
	m.Register(old)
	require.Equal(t, 1, m.Count())

	fresh := newTestClient("u1")
	m.Register(fresh)

	assert.Equal(t, 1, m.Count())
	assert.True(t, m.IsConnected("u1"))

	// The evicted client's channel is closed.
	_, open := <-old.Send
	assert.False(t, open)

	// The fresh connection still receives.
	m.SendToUser("u1", "ping", nil)
	events := drain(fresh)
	require.Len(t, events, 1)
	assert.Equal(t, "ping", events[0].Event)
}

func TestUnregister_StaleHandleDoesNotUnbindFreshConnection(t *testing.T) {
	m := NewManager()
	old := newTestClient("u1")
	m.Register(old)
	fresh := newTestClient("u1")
	m.Register(fresh)

	// The old readPump eventually calls Unregister with its stale handle;
	// it must not report itself as the registered connection.
	assert.False(t, m.Unregister(old))

	assert.True(t, m.IsConnected("u1"))
	assert.Equal(t, 1, m.Count())

	assert.True(t, m.Unregister(fresh))
	assert.False(t, m.IsConnected("u1"))
	assert.Equal(t, 0, m.Count())

	// Unregister is safe to repeat.
	assert.False(t, m.Unregister(fresh))
}

func TestReplyOnEvictedClientIsDropped(t *testing.T) {
	m := NewManager()
	old := newTestClient("u1")
	old.manager = m
	m.Register(old)
	fresh := newTestClient("u1")
	fresh.manager = m
	m.Register(fresh)

	// A handler still in flight on the evicted connection finishes by
	// replying; the reply must be dropped, not sent on a closed channel.
	old.reply("chat:list", nil)

	// The fresh connection is unaffected.
	m.SendToUser("u1", "ping", nil)
	events := drain(fresh)
	require.Len(t, events, 1)
	assert.Equal(t, "ping", events[0].Event)
	assert.Equal(t, 1, m.Count())
}

func TestJoin_IdempotentAndScopedBroadcast(t *testing.T) {
	m := NewManager()
	a := newTestClient("a")
	b := newTestClient("b")
	c := newTestClient("c")
	m.Register(a)
	m.Register(b)
	m.Register(c)

	m.Join("chat1", a)
	m.Join("chat1", a)
	m.Join("chat1", b)

	m.BroadcastToChat("chat1", "message:new", "hi")

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(c))
}

func TestLeaveAndRemoveFromRoom(t *testing.T) {
	m := NewManager()
	a := newTestClient("a")
	b := newTestClient("b")
	m.Register(a)
	m.Register(b)
	m.Join("chat1", a)
	m.Join("chat1", b)

	m.Leave("chat1", a)
	m.RemoveFromRoom("chat1", "b")
	m.RemoveFromRoom("chat1", "never-connected")

	m.BroadcastToChat("chat1", "message:new", "hi")
	assert.Empty(t, drain(a))
	assert.Empty(t, drain(b))
}

func TestUnregister_DetachesFromAllRooms(t *testing.T) {
	m := NewManager()
	a := newTestClient("a")
	m.Register(a)
	m.Join("chat1", a)
	m.Join("chat2", a)

	m.Unregister(a)

	m.BroadcastToChat("chat1", "e", nil)
	m.BroadcastToChat("chat2", "e", nil)
	assert.Empty(t, drain(a))
}

func TestBroadcastAllExcept(t *testing.T) {
	m := NewManager()
	a := newTestClient("a")
	b := newTestClient("b")
	m.Register(a)
	m.Register(b)

	m.BroadcastAllExcept("a", "user:status", nil)

	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
}

func TestTrySend_EvictsSlowClientWithoutAbortingOthers(t *testing.T) {
	m := NewManager()
	slow := &Client{UserID: "slow", Send: make(chan any)} // zero buffer, never drained
	fast := newTestClient("fast")
	m.Register(slow)
	m.Register(fast)
	m.Join("chat1", slow)
	m.Join("chat1", fast)

	m.BroadcastToChat("chat1", "message:new", "hi")

	events := drain(fast)
	require.Len(t, events, 1)
	assert.Equal(t, "message:new", events[0].Event)

	// Eviction of the slow client runs on its own goroutine.
	assert.Eventually(t, func() bool {
		return !m.IsConnected("slow")
	}, time.Second, 10*time.Millisecond)
	assert.True(t, m.IsConnected("fast"))
}
