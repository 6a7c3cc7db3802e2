package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"littlex/internal/storage"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestRecordPrependsNewestFirst(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		l.Record(ctx, fmt.Sprintf("msg %d", i), StatusSuccess)
	}
	got := l.Entries(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, "msg 2", got[0].Content)
	assert.Equal(t, "msg 0", got[2].Content)
	for _, e := range got {
		assert.Equal(t, StatusSuccess, e.Status)
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.Time)
	}
}

func TestRecordCapsAtMaxEntries(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	for i := 0; i < MaxEntries+10; i++ {
		l.Record(ctx, fmt.Sprintf("msg %d", i), StatusError)
	}
	got := l.Entries(ctx)
	require.Len(t, got, MaxEntries)
	// newest survives, oldest evicted
	assert.Equal(t, fmt.Sprintf("msg %d", MaxEntries+9), got[0].Content)
}

func TestClearEmptiesLog(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	l.Record(ctx, "hello", StatusSuccess)
	l.Clear(ctx)
	assert.Empty(t, l.Entries(ctx))
}

func TestEntriesOnFreshStoreIsEmpty(t *testing.T) {
	l := newTestLog(t)
	assert.Empty(t, l.Entries(context.Background()))
}
