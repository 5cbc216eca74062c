package ws

import (
	"sync"

	"loopchat_backend/internal/logger"
)

// OutgoingEvent is the wire envelope for server-to-client events.
type OutgoingEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Manager is the connection registry and room fan-out. One live
// connection per user: registering a new one evicts and closes the old.
// It implements the service layer's Notifier.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client          // by user id
	rooms   map[string]map[*Client]bool // by chat id
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Register binds the client to its user id, force-closing any previous
// connection for the same user.
func (m *Manager) Register(c *Client) {
	m.mu.Lock()
	old := m.clients[c.UserID]
	m.clients[c.UserID] = c
	if old != nil && old != c {
		m.detachLocked(old)
	}
	m.mu.Unlock()

	if old != nil && old != c {
		old.close()
		logger.Info("websocket connection evicted", "user_id", c.UserID)
	}
	logger.Debug("client registered", "user_id", c.UserID, "total", m.Count())
}

// Unregister removes the client by handle identity: a stale handle for a
// user that reconnected does not unbind the fresh connection. Reports
// whether this handle was the user's registered connection, so callers
// can skip presence teardown for stale handles. Safe to call more than
// once.
func (m *Manager) Unregister(c *Client) bool {
	m.mu.Lock()
	current := m.clients[c.UserID] == c
	if current {
		delete(m.clients, c.UserID)
	}
	m.detachLocked(c)
	m.mu.Unlock()
	c.close()
	return current
}

// detachLocked removes the client from every room; caller holds mu.
func (m *Manager) detachLocked(c *Client) {
	for chatID, members := range m.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(m.rooms, chatID)
			}
		}
	}
}

// Join subscribes the client to a chat's room; idempotent.
func (m *Manager) Join(chatID string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[chatID]
	if !ok {
		members = make(map[*Client]bool)
		m.rooms[chatID] = members
	}
	members[c] = true
}

// Leave unsubscribes the client from a chat's room; idempotent.
func (m *Manager) Leave(chatID string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if members, ok := m.rooms[chatID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, chatID)
		}
	}
}

// RemoveFromRoom kicks the user's live connection out of the room; used
// when they are removed from the chat server-side.
func (m *Manager) RemoveFromRoom(chatID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[userID]
	if !ok {
		return
	}
	if members, ok := m.rooms[chatID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, chatID)
		}
	}
}

// BroadcastToChat delivers to every connection in the room. Best-effort:
// a dead handle is evicted without aborting delivery to the rest.
func (m *Manager) BroadcastToChat(chatID, event string, payload any) {
	env := OutgoingEvent{Event: event, Data: payload}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range m.rooms[chatID] {
		m.trySend(c, env)
	}
}

// SendToUser delivers to the user's connection, if any.
func (m *Manager) SendToUser(userID, event string, payload any) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[userID]; ok {
		m.trySend(c, OutgoingEvent{Event: event, Data: payload})
	}
}

// BroadcastAllExcept delivers to every registered connection but one.
func (m *Manager) BroadcastAllExcept(exceptUserID, event string, payload any) {
	env := OutgoingEvent{Event: event, Data: payload}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for userID, c := range m.clients {
		if userID == exceptUserID {
			continue
		}
		m.trySend(c, env)
	}
}

// trySend never blocks. An already-closed client drops the event; a
// full send buffer means the client stopped draining, so it gets
// evicted. Caller holds at least a read lock, so the eviction runs on
// its own goroutine.
func (m *Manager) trySend(c *Client, env OutgoingEvent) {
	if c.trySend(env) || c.isClosed() {
		return
	}
	logger.Warn("client send buffer full, evicting", "user_id", c.UserID)
	go m.Unregister(c)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// IsConnected reports whether the user has a live connection.
func (m *Manager) IsConnected(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[userID]
	return ok
}
