package memory

import (
	"context"
	"testing"
	"time"

	"focustrack/internal/event"
	"focustrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Append(ctx, event.FocusSession{DurationMinutes: 5, Timestamp: time.Now(), Status: event.StatusStopped})
	require.NoError(t, err)

	snap, err := s.QueryAll(ctx)
	require.NoError(t, err)

	_, err = s.Append(ctx, event.FocusSession{DurationMinutes: 7, Timestamp: time.Now(), Status: event.StatusStopped})
	require.NoError(t, err)

	assert.Len(t, snap, 1)
	assert.Equal(t, event.DefaultTag, snap[0].Tag)
}

func TestDuplicateRunIgnored(t *testing.T) {
	ctx := context.Background()
	s := New()
	fs := event.FocusSession{RunID: "r", DurationMinutes: 25, Timestamp: time.Now(), Status: event.StatusCompleted}

	a, err := s.Append(ctx, fs)
	require.NoError(t, err)
	b, err := s.Append(ctx, fs)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	total, err := s.TotalMinutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
}

func TestClosedStore(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, storage.ErrClosed)
}
