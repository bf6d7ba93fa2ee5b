// Package memory keeps the timer state and ledger in process memory.
// Nothing survives a restart; it backs tests and --ephemeral runs.
package memory

import (
	"context"
	"focustrack/internal/event"
	"focustrack/internal/storage"
	"sync"
	"time"
)

type Store struct {
	mu             sync.RWMutex
	state          map[string]string
	sessions       []event.FocusSession
	runs           map[string]int64 // run id -> session id
	completedTasks int
	nextID         int64
	closed         bool
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{
		state: make(map[string]string),
		runs:  make(map[string]int64),
	}
}

func (s *Store) Init(ctx context.Context) error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetCompletedTasks stands in for the task list collaborator.
func (s *Store) SetCompletedTasks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedTasks = n
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, storage.ErrClosed
	}
	v, ok := s.state[key]
	return v, ok, nil
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.state[key] = value
	return nil
}

func (s *Store) Clear(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	for _, k := range keys {
		delete(s.state, k)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, fs event.FocusSession) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	if fs.RunID != "" {
		if id, exists := s.runs[fs.RunID]; exists {
			return id, nil
		}
	}
	if fs.Tag == "" {
		fs.Tag = event.DefaultTag
	}
	s.nextID++
	fs.ID = s.nextID
	s.sessions = append(s.sessions, fs)
	if fs.RunID != "" {
		s.runs[fs.RunID] = fs.ID
	}
	return fs.ID, nil
}

// QueryAll returns a copy, so callers never see a later append.
func (s *Store) QueryAll(ctx context.Context) ([]event.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	out := make([]event.FocusSession, len(s.sessions))
	copy(out, s.sessions)
	return out, nil
}

func (s *Store) SumRange(ctx context.Context, start, end time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	total := 0
	for _, fs := range s.sessions {
		if !fs.Timestamp.Before(start) && !fs.Timestamp.After(end) {
			total += fs.DurationMinutes
		}
	}
	return total, nil
}

func (s *Store) TotalMinutes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	total := 0
	for _, fs := range s.sessions {
		total += fs.DurationMinutes
	}
	return total, nil
}

func (s *Store) CountCompletedTasks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	return s.completedTasks, nil
}
