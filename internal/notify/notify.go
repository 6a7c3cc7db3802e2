package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"littlex/internal/logging"
	"littlex/internal/metrics"
	"littlex/internal/model"
	"littlex/internal/storage"
)

// MaxEntries caps the persisted log; oldest entries are evicted.
const MaxEntries = 50

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log is the durable notification side-channel. It lives outside the
// in-memory stores: every entry is read-modify-written to storage so the
// list survives restarts.
type Log struct {
	db  *storage.DB
	now func() time.Time
}

func New(db *storage.DB) *Log {
	return &Log{db: db, now: time.Now}
}

// Record prepends an entry to the persisted list. A corrupt or absent list
// starts over empty. Storage failures are logged and swallowed; recording a
// toast must never fail an action.
func (l *Log) Record(ctx context.Context, content, status string) {
	entries := l.Entries(ctx)
	e := model.Notification{
		ID:      uuid.NewString(),
		Content: content,
		Status:  status,
		Time:    l.now().Format("3:04 PM"),
	}
	entries = append([]model.Notification{e}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	if err := l.db.SetJSON(ctx, storage.KeyNotifications, entries, 0); err != nil {
		logging.Error("notify_write_failed", map[string]any{"error": err.Error()})
		return
	}
	metrics.NotificationsRecorded.Inc()
}

// Entries returns the persisted list, newest first. Absent or corrupt state
// yields an empty list.
func (l *Log) Entries(ctx context.Context) []model.Notification {
	var entries []model.Notification
	if err := l.db.GetJSON(ctx, storage.KeyNotifications, &entries); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Warn("notify_read_failed", map[string]any{"error": err.Error()})
		}
		return nil
	}
	return entries
}

// Clear removes the entire log. Invoked on logout.
func (l *Log) Clear(ctx context.Context) {
	if err := l.db.Delete(ctx, storage.KeyNotifications); err != nil {
		logging.Error("notify_clear_failed", map[string]any{"error": err.Error()})
	}
}
