package storage

import (
	"context"
	"errors"
	"focustrack/internal/event"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("storage: store is closed")

// StateStore is the durable key/value store behind the timer state.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Clear(ctx context.Context, keys ...string) error
}

// Ledger is the append-only store of focus sessions.
//
// Append must ignore a session whose non-empty RunID is already present and
// return the existing row id instead. QueryAll returns a consistent snapshot
// in no particular order.
type Ledger interface {
	Append(ctx context.Context, s event.FocusSession) (int64, error)
	QueryAll(ctx context.Context) ([]event.FocusSession, error)
	SumRange(ctx context.Context, start, end time.Time) (int, error)
	TotalMinutes(ctx context.Context) (int, error)
}

// TaskCounter is the slice of the task list collaborator used for stats.
type TaskCounter interface {
	CountCompletedTasks(ctx context.Context) (int, error)
}

// Storage bundles everything the daemon needs from one backend.
type Storage interface {
	StateStore
	Ledger
	TaskCounter
	Init(ctx context.Context) error
	Close() error
}
