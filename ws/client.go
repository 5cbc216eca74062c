package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/logger"
	"loopchat_backend/internal/services"
	chat "loopchat_backend/internal/services/chat"
	"loopchat_backend/internal/workers"
	"loopchat_backend/pkg/apperrors"
)

// IncomingEvent is the wire envelope for client-to-server events.
type IncomingEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Services bundles everything the dispatcher routes to.
type Services struct {
	Presence  *chat.PresenceService
	Chats     *chat.ChatService
	Messages  *chat.MessageService
	Reactions *chat.ReactionService
	Polls     *chat.PollService
	Scheduler *workers.SchedulerWorker
	Users     *services.UserService
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan any

	manager  *Manager
	services *Services

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

const sendBufferSize = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and starts the read/write pumps. The
// user's presence is established via user:login, not the handshake.
func ServeWS(manager *Manager, svc *Services, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan any, sendBufferSize),
		manager:  manager,
		services: svc,
	}
	manager.Register(client)

	go client.readPump()
	go client.writePump()
}

// close shuts the send channel and the socket exactly once. The closed
// flag flips under the same lock trySend takes, so an in-flight handler
// finishing on an evicted connection drops its reply instead of sending
// on a closed channel.
func (c *Client) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// trySend queues the event without blocking; reports whether it was
// accepted. A closed client refuses everything.
func (c *Client) trySend(env OutgoingEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) readPump() {
	defer func() {
		// A stale handle unwinding after a reconnect must not flip
		// presence for the user's fresh connection.
		if !c.manager.Unregister(c) {
			return
		}
		if err := c.services.Presence.Disconnect(c.UserID); err != nil {
			logger.Warn("disconnect handling failed", "user_id", c.UserID, "error", err)
		}
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var event IncomingEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.sendError("malformed event")
			continue
		}
		c.dispatch(event)
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			logger.Debug("websocket write error", "user_id", c.UserID, "error", err)
			return
		}
	}
}

// dispatch routes one inbound event. Handler failures become a
// structured error event on this connection; they never kill it.
func (c *Client) dispatch(event IncomingEvent) {
	var err error
	switch event.Event {

	case chat.EventUserLogin:
		var chats []dto.ChatView
		chats, err = c.services.Presence.Login(c.UserID)
		if err == nil {
			c.reply(chat.EventChatList, chats)
		}

	case chat.EventChatJoin:
		var payload struct {
			ChatID string `json:"chatId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		var member bool
		member, err = c.services.Chats.IsMember(payload.ChatID, c.UserID)
		if err == nil && !member {
			err = apperrors.ErrNotParticipant
		}
		if err == nil {
			c.manager.Join(payload.ChatID, c)
		}

	case chat.EventMessageHistory:
		var payload struct {
			ChatID string `json:"chatId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		var msgs []dto.MessageView
		msgs, err = c.services.Messages.History(payload.ChatID, c.UserID)
		if err == nil {
			c.reply(chat.EventMessageHistory, map[string]any{
				"chatId":   payload.ChatID,
				"messages": msgs,
			})
		}

	case chat.EventMessageSend:
		var input dto.SendMessageInput
		if err = json.Unmarshal(event.Data, &input); err != nil {
			break
		}
		_, err = c.services.Messages.Send(c.UserID, input)

	case chat.EventMessageDelete:
		var payload struct {
			MessageID string `json:"messageId"`
			ChatID    string `json:"chatId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		err = c.services.Messages.Delete(payload.MessageID, payload.ChatID, c.UserID)

	case chat.EventMessageReaction:
		var payload struct {
			MessageID string `json:"messageId"`
			ChatID    string `json:"chatId"`
			Emoji     string `json:"emoji"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		_, err = c.services.Reactions.Toggle(payload.MessageID, payload.ChatID, c.UserID, payload.Emoji)

	case chat.EventMessagePin:
		var payload struct {
			MessageID string `json:"messageId"`
			ChatID    string `json:"chatId"`
			Pin       bool   `json:"pin"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		_, err = c.services.Messages.Pin(payload.MessageID, payload.ChatID, payload.Pin, c.UserID)

	case chat.EventMessageSchedule:
		var input dto.ScheduleMessageInput
		if err = json.Unmarshal(event.Data, &input); err != nil {
			break
		}
		row, schedErr := c.services.Scheduler.Schedule(c.UserID, input)
		err = schedErr
		if err == nil {
			c.reply(chat.EventMessageScheduled, map[string]any{
				"id":     row.ID,
				"chatId": row.ChatID,
				"sendAt": row.SendAt,
			})
		}

	case chat.EventChatCreate:
		var input dto.CreateChatInput
		if err = json.Unmarshal(event.Data, &input); err != nil {
			break
		}
		var view *dto.ChatView
		view, err = c.services.Chats.CreateChat(c.UserID, input)
		if err == nil {
			c.manager.Join(view.ID, c)
			c.reply(chat.EventChatNew, view)
		}

	case chat.EventChatUpdate:
		var payload struct {
			ChatID string `json:"chatId"`
			dto.UpdateChatInput
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		_, err = c.services.Chats.UpdateChat(payload.ChatID, c.UserID, payload.UpdateChatInput)

	case chat.EventChatDelete:
		var payload struct {
			ChatID string `json:"chatId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		err = c.services.Chats.DeleteChat(payload.ChatID, c.UserID)

	case chat.EventChatLeave:
		var payload struct {
			ChatID string `json:"chatId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		_, err = c.services.Chats.RemoveMember(payload.ChatID, c.UserID, c.UserID)

	case chat.EventChatRemoveMember:
		var payload struct {
			ChatID string `json:"chatId"`
			UserID string `json:"userId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		_, err = c.services.Chats.RemoveMember(payload.ChatID, payload.UserID, c.UserID)

	case chat.EventUserUpdate:
		var input dto.UpdateUserInput
		if err = json.Unmarshal(event.Data, &input); err != nil {
			break
		}
		var view *dto.UserView
		view, err = c.services.Users.Update(c.UserID, input)
		if err == nil {
			c.reply(chat.EventUserUpdated, view)
		}

	case chat.EventPollVote:
		var payload struct {
			PollID   string `json:"pollId"`
			OptionID string `json:"optionId"`
		}
		if err = json.Unmarshal(event.Data, &payload); err != nil {
			break
		}
		_, err = c.services.Polls.Vote(payload.PollID, payload.OptionID, c.UserID)

	default:
		c.sendError("unknown event: " + event.Event)
		return
	}

	if err != nil {
		logger.Debug("event handling failed", "event", event.Event, "user_id", c.UserID, "error", err)
		if appErr, ok := apperrors.AsAppError(err); ok {
			c.sendError(appErr.Message)
		} else {
			c.sendError("internal error")
		}
	}
}

func (c *Client) reply(event string, payload any) {
	c.manager.trySend(c, OutgoingEvent{Event: event, Data: payload})
}

func (c *Client) sendError(message string) {
	c.reply(chat.EventError, map[string]any{"message": message})
}
