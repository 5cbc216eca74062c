package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"loopchat_backend/database"
	"loopchat_backend/internal/config"
	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/models"
	modelChat "loopchat_backend/internal/models/chat"
	"loopchat_backend/pkg/apperrors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.AppConfig = &config.Config{}
	config.AppConfig.Database.Driver = "sqlite"
	config.AppConfig.Files.BaseURL = "/api/v1/files"

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) BroadcastToChat(_, event string, _ any) { n.record(event) }

func (n *recordingNotifier) SendToUser(_, event string, _ any) { n.record(event) }

func (n *recordingNotifier) BroadcastAllExcept(_, event string, _ any) { n.record(event) }

func (n *recordingNotifier) RemoveFromRoom(_, _ string) {}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

// seedChat inserts a group chat with one member and returns the ids.
func seedChat(t *testing.T, db *gorm.DB) (chatID, userID string) {
	t.Helper()
	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         "Alice",
		Email:        fmt.Sprintf("alice-%s@test.local", uuid.New().String()[:8]),
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(user).Error)

	name := "scheduled test"
	c := &modelChat.Chat{
		ID:        uuid.New().String(),
		Name:      &name,
		IsGroup:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(c).Error)
	require.NoError(t, db.Create(&modelChat.ChatParticipant{
		ID:       uuid.New().String(),
		ChatID:   c.ID,
		UserID:   user.ID,
		IsAdmin:  true,
		JoinedAt: now,
	}).Error)
	return c.ID, user.ID
}

func TestSchedule_RejectsNonParticipant(t *testing.T) {
	db := newTestDB(t)
	w := NewSchedulerWorker(db, &recordingNotifier{})
	chatID, _ := seedChat(t, db)

	_, err := w.Schedule("stranger", dto.ScheduleMessageInput{
		ChatID:  chatID,
		Content: "hi",
		SendAt:  time.Now().Add(time.Hour),
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotParticipant))

	_, err = w.Schedule("stranger", dto.ScheduleMessageInput{
		ChatID: chatID,
		SendAt: time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestFire_DeliversExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	w := NewSchedulerWorker(db, notifier)
	chatID, userID := seedChat(t, db)

	row, err := w.Schedule(userID, dto.ScheduleMessageInput{
		ChatID:  chatID,
		Content: "future news",
		SendAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	w.fire(row.ID)
	w.fire(row.ID)

	var msgs int64
	require.NoError(t, db.Model(&modelChat.Message{}).
		Where("chat_id = ? AND content = ?", chatID, "future news").Count(&msgs).Error)
	assert.Equal(t, int64(1), msgs)

	var stored modelChat.ScheduledMessage
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.True(t, stored.IsSent)

	assert.Equal(t, 1, notifier.count("message:new"))
}

func TestFire_RetiresRowWhenChatIsGone(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	w := NewSchedulerWorker(db, notifier)
	chatID, userID := seedChat(t, db)

	row, err := w.Schedule(userID, dto.ScheduleMessageInput{
		ChatID:  chatID,
		Content: "orphaned",
		SendAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, db.Delete(&modelChat.ChatParticipant{}, "chat_id = ?", chatID).Error)
	require.NoError(t, db.Delete(&modelChat.Chat{}, "id = ?", chatID).Error)

	w.fire(row.ID)

	var stored modelChat.ScheduledMessage
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.True(t, stored.IsSent)

	var msgs int64
	require.NoError(t, db.Model(&modelChat.Message{}).
		Where("chat_id = ?", chatID).Count(&msgs).Error)
	assert.Zero(t, msgs)
	assert.Zero(t, notifier.count("message:new"))
}

func TestStart_ReArmsPendingRows(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	chatID, userID := seedChat(t, db)

	// A row whose send time already passed, persisted by a previous run.
	require.NoError(t, db.Create(&modelChat.ScheduledMessage{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		SenderID:  userID,
		Content:   "overdue",
		SendAt:    time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}).Error)

	w := NewSchedulerWorker(db, notifier)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	assert.Eventually(t, func() bool {
		var msgs int64
		if err := db.Model(&modelChat.Message{}).
			Where("chat_id = ? AND content = ?", chatID, "overdue").Count(&msgs).Error; err != nil {
			return false
		}
		return msgs == 1
	}, 2*time.Second, 20*time.Millisecond)
}
