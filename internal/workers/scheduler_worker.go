package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/logger"
	modelChat "loopchat_backend/internal/models/chat"
	repoChat "loopchat_backend/internal/repositories/chat"
	chatService "loopchat_backend/internal/services/chat"
	"loopchat_backend/pkg/apperrors"
)

// SchedulerWorker arms one-shot in-process timers for scheduled messages.
// Rows are durable; timers are not. Start re-arms every pending row, so a
// restart loses only the timers. Firing re-checks the sent flag inside
// the delivery transaction, giving at-most-once within a process.
type SchedulerWorker struct {
	db           *gorm.DB
	chats        *repoChat.ChatRepository
	participants *repoChat.ParticipantRepository
	messages     *repoChat.MessageRepository
	scheduled    *repoChat.ScheduledMessageRepository
	notifier     chatService.Notifier

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewSchedulerWorker(db *gorm.DB, notifier chatService.Notifier) *SchedulerWorker {
	return &SchedulerWorker{
		db:           db,
		chats:        repoChat.NewChatRepository(db),
		participants: repoChat.NewParticipantRepository(db),
		messages:     repoChat.NewMessageRepository(db),
		scheduled:    repoChat.NewScheduledMessageRepository(db),
		notifier:     notifier,
		timers:       make(map[string]*time.Timer),
	}
}

// Start re-arms timers for every pending row and stops them all when the
// context ends.
func (w *SchedulerWorker) Start(ctx context.Context) error {
	pending, err := w.scheduled.ListPending()
	if err != nil {
		return err
	}
	for _, row := range pending {
		w.arm(row.ID, row.SendAt)
	}
	logger.Info("scheduler worker started", "pending", len(pending))

	go func() {
		<-ctx.Done()
		w.stopAll()
	}()
	return nil
}

// Schedule validates, persists the row and arms its timer.
func (w *SchedulerWorker) Schedule(senderID string, input dto.ScheduleMessageInput) (*modelChat.ScheduledMessage, error) {
	if input.Content == "" {
		return nil, apperrors.NewBadRequestError("scheduled message content is required")
	}
	ok, err := w.participants.IsParticipant(input.ChatID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	row := &modelChat.ScheduledMessage{
		ID:        uuid.New().String(),
		ChatID:    input.ChatID,
		SenderID:  senderID,
		Content:   input.Content,
		SendAt:    input.SendAt,
		CreatedAt: time.Now(),
	}
	if err := w.scheduled.Create(row); err != nil {
		return nil, err
	}
	w.arm(row.ID, row.SendAt)
	return row, nil
}

func (w *SchedulerWorker) arm(id string, sendAt time.Time) {
	delay := time.Until(sendAt)
	if delay < 0 {
		delay = 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.timers[id]; exists {
		return
	}
	w.timers[id] = time.AfterFunc(delay, func() {
		w.fire(id)
	})
}

func (w *SchedulerWorker) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}

// fire delivers the scheduled message. The insert, the chat timestamp
// bump and the sent-flag flip commit together; an already-sent row is a
// no-op.
func (w *SchedulerWorker) fire(id string) {
	w.mu.Lock()
	delete(w.timers, id)
	w.mu.Unlock()

	var msg *modelChat.Message
	err := w.db.Transaction(func(tx *gorm.DB) error {
		row, err := w.scheduled.WithTx(tx).FindByID(id)
		if err != nil {
			return err
		}
		if row == nil || row.IsSent {
			return nil
		}
		var c modelChat.Chat
		if err := tx.First(&c, "id = ?", row.ChatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Chat was deleted in the meantime; retire the row.
				return w.scheduled.WithTx(tx).MarkSent(id)
			}
			return err
		}
		senderID := row.SenderID
		msg = &modelChat.Message{
			ID:        uuid.New().String(),
			ChatID:    row.ChatID,
			SenderID:  &senderID,
			Type:      modelChat.MessageTypeText,
			Content:   row.Content,
			CreatedAt: time.Now(),
		}
		if err := w.messages.WithTx(tx).Create(msg); err != nil {
			return err
		}
		if err := w.chats.WithTx(tx).Touch(row.ChatID); err != nil {
			return err
		}
		return w.scheduled.WithTx(tx).MarkSent(id)
	})
	if err != nil {
		logger.Error("scheduled message delivery failed", "scheduled_id", id, "error", err)
		return
	}
	if msg == nil {
		return
	}

	full, err := w.messages.FindByID(msg.ID)
	if err != nil || full == nil {
		logger.Error("scheduled message reload failed", "message_id", msg.ID, "error", err)
		return
	}
	if view, err := chatService.BuildMessageView(full); err == nil {
		w.notifier.BroadcastToChat(msg.ChatID, chatService.EventMessageNew, view)
	}
}
