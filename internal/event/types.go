package event

import (
	"fmt"
	"time"
)

// DefaultTag is recorded when a session ends without a tag.
const DefaultTag = "Untagged"

// MinRecordable is the least focused time that produces a ledger entry.
const MinRecordable = time.Minute

type SessionStatus string

const (
	StatusCompleted SessionStatus = "COMPLETED" // countdown reached zero
	StatusStopped   SessionStatus = "STOPPED"   // user reset or duration change
)

// ParseSessionStatus maps a stored status string back to its constant.
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(s) {
	case StatusCompleted, StatusStopped:
		return SessionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown session status %q", s)
	}
}

// FocusSession is one ledger entry. It is never changed after Append.
type FocusSession struct {
	ID              int64         `db:"id"`
	RunID           string        `db:"run_id"` // one session per countdown run
	DurationMinutes int           `db:"duration_minutes"`
	Timestamp       time.Time     `db:"ended_at"`
	Status          SessionStatus `db:"status"`
	Tag             string        `db:"tag"`
}

// TimerState is the countdown state machine position.
type TimerState string

const (
	StateIdle    TimerState = "Idle"
	StateRunning TimerState = "Running"
	StatePaused  TimerState = "Paused"
)

// TimerUpdate is a point-in-time view of the timer for observers.
type TimerUpdate struct {
	State     TimerState
	Remaining time.Duration
	Initial   time.Duration
	EndTime   time.Time // zero unless Running
	Tag       string
}

// TimerFinished is emitted once per natural completion.
type TimerFinished struct {
	At      time.Time
	Session *FocusSession // nil when nothing was recorded
}

type Notification struct {
	Title   string
	Message string
}
