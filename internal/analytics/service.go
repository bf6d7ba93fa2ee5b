package analytics

import (
	"context"
	"fmt"
	"focustrack/internal/event"
	"focustrack/internal/storage"

	"github.com/jonboulle/clockwork"
)

// Service loads ledger snapshots and runs the pure computations over them.
type Service struct {
	ledger  storage.Ledger
	tasks   storage.TaskCounter
	clock   clockwork.Clock
	cfg     Config
	tracker LevelTracker
}

// NewService creates a new analytics service. tasks may be nil.
func NewService(ledger storage.Ledger, tasks storage.TaskCounter, clock clockwork.Clock, cfg Config) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		ledger: ledger,
		tasks:  tasks,
		clock:  clock,
		cfg:    cfg,
	}
}

func (s *Service) snapshot(ctx context.Context) ([]event.FocusSession, error) {
	sessions, err := s.ledger.QueryAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return sessions, nil
}

// Stats returns the profile summary.
func (s *Service) Stats(ctx context.Context) (UserStats, error) {
	sessions, err := s.snapshot(ctx)
	if err != nil {
		return UserStats{}, err
	}
	return s.statsFrom(ctx, sessions)
}

func (s *Service) statsFrom(ctx context.Context, sessions []event.FocusSession) (UserStats, error) {
	tasks := 0
	if s.tasks != nil {
		n, err := s.tasks.CountCompletedTasks(ctx)
		if err != nil {
			return UserStats{}, fmt.Errorf("failed to count completed tasks: %w", err)
		}
		tasks = n
	}
	return ComputeStats(sessions, tasks, s.clock.Now(), s.cfg), nil
}

// Chart returns the buckets of one period view.
func (s *Service) Chart(ctx context.Context, period Period) ([]ChartDataPoint, error) {
	sessions, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Chart(period, sessions, s.clock.Now())
}

// Insight returns the summary line of one period view.
func (s *Service) Insight(ctx context.Context, period Period) (Insight, error) {
	sessions, err := s.snapshot(ctx)
	if err != nil {
		return Insight{}, err
	}
	points, err := Chart(period, sessions, s.clock.Now())
	if err != nil {
		return Insight{}, err
	}
	stats, err := s.statsFrom(ctx, sessions)
	if err != nil {
		return Insight{}, err
	}
	return ComputeInsight(period, points, stats), nil
}

// Refresh feeds the level tracker after a ledger change and reports whether
// a level-up was detected. Only the ledger total is read unless the level
// went up; otherwise the returned stats carry the level fields alone.
func (s *Service) Refresh(ctx context.Context) (UserStats, bool, error) {
	total, err := s.ledger.TotalMinutes(ctx)
	if err != nil {
		return UserStats{}, false, fmt.Errorf("failed to total sessions: %w", err)
	}
	stats := levelStats(total, s.cfg)
	if !s.tracker.Observe(stats.Level) {
		return stats, false, nil
	}
	full, err := s.Stats(ctx)
	if err != nil {
		return stats, true, err
	}
	return full, true, nil
}

// TodayMinutes sums the minutes recorded on the current calendar day.
func (s *Service) TodayMinutes(ctx context.Context) (int, error) {
	now := s.clock.Now()
	n, err := s.ledger.SumRange(ctx, startOfDay(now), endOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("failed to sum today's sessions: %w", err)
	}
	return n, nil
}

func (s *Service) CelebrationPending() bool {
	return s.tracker.Pending()
}

func (s *Service) AcknowledgeCelebration() bool {
	return s.tracker.Acknowledge()
}
