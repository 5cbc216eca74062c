package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"loopchat_backend/database"
	"loopchat_backend/internal/config"
	"loopchat_backend/internal/email"
	"loopchat_backend/internal/models"
	chat "loopchat_backend/internal/services/chat"
)

// newRealtimeTestServer wires a manager and the presence/chat services
// over an in-memory database behind a plain upgrade endpoint; the user
// id comes from a query parameter in place of the auth middleware.
func newRealtimeTestServer(t *testing.T) (*Manager, *gorm.DB, *httptest.Server) {
	t.Helper()

	config.AppConfig = &config.Config{}
	config.AppConfig.Database.Driver = "sqlite"
	config.AppConfig.JWT.Secret = "test-secret"
	config.AppConfig.JWT.TTL = 60
	config.AppConfig.Files.BaseURL = "/api/v1/files"

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	manager := NewManager()
	chats := chat.NewChatService(db, manager, email.NewMockProvider())
	svc := &Services{
		Presence: chat.NewPresenceService(db, chats, nil, manager),
		Chats:    chats,
		Messages: chat.NewMessageService(db, manager),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(manager, svc, w, r, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(srv.Close)
	return manager, db, srv
}

func dialUser(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?uid=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func loginAndExpectChatList(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": chat.EventUserLogin}))
	var reply struct {
		Event string `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, chat.EventChatList, reply.Event)
}

func TestReconnect_EvictsOldConnectionAndKeepsUserOnline(t *testing.T) {
	manager, db, srv := newRealtimeTestServer(t)

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         "Alice",
		Email:        "alice@test.local",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(user).Error)

	first := dialUser(t, srv, user.ID)
	defer first.Close()
	loginAndExpectChatList(t, first)

	// A second connection for the same user evicts the first.
	second := dialUser(t, srv, user.ID)
	defer second.Close()
	loginAndExpectChatList(t, second)

	// The server closed the first socket; wait for its pump to unwind.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return manager.Count() == 1
	}, 2*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	// The stale teardown must not flip the reconnected user offline.
	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.IsOnline)
	assert.True(t, manager.IsConnected(user.ID))

	// The fresh connection still serves traffic.
	loginAndExpectChatList(t, second)
}

func TestDisconnect_LastConnectionGoesOffline(t *testing.T) {
	manager, db, srv := newRealtimeTestServer(t)

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         "Bob",
		Email:        "bob@test.local",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(user).Error)

	conn := dialUser(t, srv, user.ID)
	loginAndExpectChatList(t, conn)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		var stored models.User
		if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
			return false
		}
		return !stored.IsOnline && stored.LastSeenAt != nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.False(t, manager.IsConnected(user.ID))
}
