package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"loopchat_backend/database"
	"loopchat_backend/internal/config"
	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/email"
	"loopchat_backend/internal/models"
)

// newTestDB opens an isolated in-memory sqlite database and migrates the
// schema. The named shared-cache DSN keeps the database alive across
// pooled connections within one test.
func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Target  string
	Event   string
	Payload any
}

func (n *recordingNotifier) record(target, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Target: target, Event: event, Payload: payload})
}

func (n *recordingNotifier) BroadcastToChat(chatID, event string, payload any) {
	n.record("chat:"+chatID, event, payload)
}

func (n *recordingNotifier) SendToUser(userID, event string, payload any) {
	n.record("user:"+userID, event, payload)
}

func (n *recordingNotifier) BroadcastAllExcept(exceptUserID, event string, payload any) {
	n.record("all-except:"+exceptUserID, event, payload)
}

func (n *recordingNotifier) RemoveFromRoom(chatID, userID string) {
	n.record("room-remove:"+chatID, "", userID)
}

func (n *recordingNotifier) eventsNamed(event string) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedEvent
	for _, e := range n.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@test.local", name, uuid.New().String()[:8]),
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createTestGroup builds a group chat with the first user as admin.
func createTestGroup(t *testing.T, svc *ChatService, creator *models.User, members ...*models.User) *dto.ChatView {
	t.Helper()
	name := "test group"
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	view, err := svc.CreateChat(creator.ID, dto.CreateChatInput{
		Name:           &name,
		IsGroup:        true,
		ParticipantIDs: ids,
	})
	require.NoError(t, err)
	return view
}

func newTestChatService(t *testing.T) (*ChatService, *recordingNotifier, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	return NewChatService(db, notifier, email.NewMockProvider()), notifier, db
}
