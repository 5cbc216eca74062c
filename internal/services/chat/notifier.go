package chat

// Realtime event names. Client-to-server and server-to-client share one
// namespace; the dispatcher routes inbound names, services emit outbound.
const (
	EventUserLogin         = "user:login"
	EventChatList          = "chat:list"
	EventChatJoin          = "chat:join"
	EventMessageHistory    = "message:history"
	EventMessageSend       = "message:send"
	EventMessageNew        = "message:new"
	EventMessageDelete     = "message:delete"
	EventMessageDeleted    = "message:deleted"
	EventMessageReaction   = "message:reaction"
	EventMessagePin        = "message:pin"
	EventMessagePinned     = "message:pinned"
	EventMessageSchedule   = "message:schedule"
	EventMessageScheduled  = "message:scheduled"
	EventChatCreate        = "chat:create"
	EventChatNew           = "chat:new"
	EventChatUpdate        = "chat:update"
	EventChatUpdated       = "chat:updated"
	EventChatDelete        = "chat:delete"
	EventChatDeleted       = "chat:deleted"
	EventChatLeave         = "chat:leave"
	EventChatLeft          = "chat:left"
	EventChatRemoveMember  = "chat:removeMember"
	EventChatMemberRemoved = "chat:memberRemoved"
	EventUserUpdate        = "user:update"
	EventUserUpdated       = "user:updated"
	EventUserStatus        = "user:status"
	EventPollVote          = "poll:vote"
	EventError             = "error"
)

// Notifier is the fan-out surface services emit through. The websocket
// manager implements it; delivery is best-effort and never returns an
// error to the emitting request.
type Notifier interface {
	// BroadcastToChat delivers to every connection joined to the chat's room.
	BroadcastToChat(chatID, event string, payload any)
	// SendToUser delivers to the user's live connection, if any.
	SendToUser(userID, event string, payload any)
	// BroadcastAllExcept delivers to every registered connection but one.
	BroadcastAllExcept(exceptUserID, event string, payload any)
	// RemoveFromRoom unsubscribes the user's connection from a chat room;
	// used when membership is revoked server-side.
	RemoveFromRoom(chatID, userID string)
}

// NopNotifier discards everything; used where no realtime layer is wired.
type NopNotifier struct{}

func (NopNotifier) BroadcastToChat(string, string, any)    {}
func (NopNotifier) SendToUser(string, string, any)         {}
func (NopNotifier) BroadcastAllExcept(string, string, any) {}
func (NopNotifier) RemoveFromRoom(string, string)          {}
