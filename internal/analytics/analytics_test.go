package analytics

import (
	"context"
	"testing"
	"time"

	"focustrack/internal/event"
	"focustrack/internal/storage/memory"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sunday afternoon.
var now = time.Date(2026, 10, 18, 15, 0, 0, 0, time.Local)

func sess(minutes int, at time.Time) event.FocusSession {
	return event.FocusSession{DurationMinutes: minutes, Timestamp: at, Status: event.StatusCompleted, Tag: "Work"}
}

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func TestEmptyLedger(t *testing.T) {
	stats := ComputeStats(nil, 0, now, Config{})
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, "Novice", stats.Title)
	assert.Zero(t, stats.Progress)
	assert.Zero(t, stats.CurrentStreak)
	assert.Zero(t, stats.BestStreak)
	assert.Equal(t, 10, stats.HoursToNextLevel)

	week := Weekly(nil, now)
	require.Len(t, week, 7)
	labels := make([]string, 0, 7)
	for i, p := range week {
		labels = append(labels, p.Label)
		assert.Zero(t, p.Value)
		assert.Equal(t, i == 6, p.IsCurrentBucket)
	}
	assert.Equal(t, []string{"M", "T", "W", "T", "F", "S", "Today"}, labels)

	life := Lifetime(nil, now)
	require.Len(t, life, 1)
	assert.Equal(t, "2026", life[0].Label)
	assert.True(t, life[0].IsCurrentBucket)
}

func TestLevel(t *testing.T) {
	tests := []struct {
		total       int
		level       int
		progress    float64
		hoursToNext int
	}{
		{0, 1, 0, 10},
		{59, 1, 59.0 / 600, 10},
		{600, 2, 0, 10},
		{899, 2, 299.0 / 600, 6},
		{6000, 11, 0, 10},
	}
	for _, tt := range tests {
		level, progress, hours := Level(tt.total, Config{})
		assert.Equal(t, tt.level, level, "total %d", tt.total)
		assert.InDelta(t, tt.progress, progress, 1e-9, "total %d", tt.total)
		assert.Equal(t, tt.hoursToNext, hours, "total %d", tt.total)
	}

	level, progress, _ := Level(90, Config{MinutesPerLevel: 60})
	assert.Equal(t, 2, level)
	assert.InDelta(t, 0.5, progress, 1e-9)
}

func TestTitle(t *testing.T) {
	cases := map[int]string{
		1: "Novice", 10: "Novice", 11: "Apprentice", 50: "Apprentice", 51: "Adept",
		100: "Adept", 101: "Expert", 300: "Expert", 301: "Master", 600: "Master",
		601: "Grandmaster", 999: "Grandmaster", 1000: "Legend",
	}
	for level, want := range cases {
		assert.Equal(t, want, Title(level), "level %d", level)
	}
}

func TestStreaks(t *testing.T) {
	t.Run("yesterday and today", func(t *testing.T) {
		sessions := []event.FocusSession{sess(45, daysAgo(1)), sess(30, now)}
		current, best := Streaks(sessions, now)
		assert.Equal(t, 2, current)
		assert.Equal(t, 2, best)
	})

	t.Run("gap keeps earlier run separate", func(t *testing.T) {
		sessions := []event.FocusSession{
			sess(25, now), sess(25, daysAgo(1)), sess(25, daysAgo(2)), sess(25, daysAgo(4)),
		}
		current, best := Streaks(sessions, now)
		assert.Equal(t, 3, current)
		assert.Equal(t, 3, best)
	})

	t.Run("nothing today", func(t *testing.T) {
		sessions := []event.FocusSession{sess(25, daysAgo(1)), sess(25, daysAgo(2))}
		current, best := Streaks(sessions, now)
		assert.Zero(t, current)
		assert.Equal(t, 2, best)
	})

	t.Run("several sessions one day", func(t *testing.T) {
		day := daysAgo(10)
		sessions := []event.FocusSession{sess(25, day), sess(25, day.Add(time.Hour))}
		current, best := Streaks(sessions, now)
		assert.Zero(t, current)
		assert.Equal(t, 1, best)
	})

	t.Run("best run in the past", func(t *testing.T) {
		var sessions []event.FocusSession
		for i := 20; i < 25; i++ {
			sessions = append(sessions, sess(25, daysAgo(i)))
		}
		sessions = append(sessions, sess(25, now))
		current, best := Streaks(sessions, now)
		assert.Equal(t, 1, current)
		assert.Equal(t, 5, best)
	})
}

func TestStreakAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// Clocks go back on 2026-10-25.
	today := time.Date(2026, 10, 26, 9, 0, 0, 0, loc)
	sessions := []event.FocusSession{
		sess(25, time.Date(2026, 10, 24, 23, 30, 0, 0, loc)),
		sess(25, time.Date(2026, 10, 25, 0, 30, 0, 0, loc)),
		sess(25, time.Date(2026, 10, 25, 23, 30, 0, 0, loc)),
		sess(25, today),
	}
	current, best := Streaks(sessions, today)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, best)
}

func TestWeekly(t *testing.T) {
	sessions := []event.FocusSession{sess(45, daysAgo(1)), sess(30, now)}
	week := Weekly(sessions, now)
	require.Len(t, week, 7)
	assert.Equal(t, 30, week[6].Value)
	assert.Equal(t, 45, week[5].Value)
}

func TestWeeklySumMatchesLedger(t *testing.T) {
	var sessions []event.FocusSession
	total := 0
	for i := 0; i < 7; i++ {
		m := 10*i + 5
		total += m
		// Midnight and the last second of the day are both inside.
		sessions = append(sessions, sess(m, startOfDay(daysAgo(i))))
		sessions = append(sessions, sess(1, endOfDay(daysAgo(i))))
		total++
	}
	sum := 0
	for _, p := range Weekly(sessions, now) {
		sum += p.Value
	}
	assert.Equal(t, total, sum)
}

func TestMonthly(t *testing.T) {
	sessions := []event.FocusSession{
		sess(10, now),
		sess(20, daysAgo(1)),
		sess(30, daysAgo(5)),
		sess(40, daysAgo(25)),
		sess(99, daysAgo(40)),
	}
	month := Monthly(sessions, now)
	require.Len(t, month, 6)

	labels := make([]string, 0, 6)
	for _, p := range month {
		labels = append(labels, p.Label)
	}
	assert.Equal(t, []string{"25d", "20d", "15d", "10d", "5d", "Now"}, labels)
	assert.Equal(t, 40, month[0].Value)
	assert.Equal(t, 50, month[4].Value) // days 5..1 ago
	assert.Equal(t, 10, month[5].Value)
	assert.True(t, month[5].IsCurrentBucket)
	assert.False(t, month[4].IsCurrentBucket)
}

func TestYearly(t *testing.T) {
	sessions := []event.FocusSession{
		sess(10, now),
		sess(20, time.Date(2025, time.November, 30, 23, 59, 0, 0, time.Local)),
		sess(30, time.Date(2025, time.October, 31, 12, 0, 0, 0, time.Local)),
	}
	year := Yearly(sessions, now)
	require.Len(t, year, 12)
	assert.Equal(t, "Nov", year[0].Label)
	assert.Equal(t, "Oct", year[11].Label)
	assert.Equal(t, 20, year[0].Value)
	assert.Equal(t, 10, year[11].Value)

	sum := 0
	for _, p := range year {
		sum += p.Value
	}
	assert.Equal(t, 30, sum)
}

func TestLifetime(t *testing.T) {
	sessions := []event.FocusSession{
		sess(60, time.Date(2023, time.March, 1, 10, 0, 0, 0, time.Local)),
		sess(30, now),
	}
	life := Lifetime(sessions, now)
	require.Len(t, life, 4)
	assert.Equal(t, "2023", life[0].Label)
	assert.Equal(t, 60, life[0].Value)
	assert.Equal(t, "2026", life[3].Label)
	assert.Equal(t, 30, life[3].Value)
	assert.True(t, life[3].IsCurrentBucket)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonthly, p)

	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p)

	_, err = ParsePeriod("fortnightly")
	assert.ErrorIs(t, err, ErrUnknownPeriod)

	_, err = Chart(Period("decade"), nil, now)
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestComputeInsight(t *testing.T) {
	points := []ChartDataPoint{{Value: 420}, {Value: 420}}
	stats := UserStats{CurrentStreak: 2, BestStreak: 4}

	weekly := ComputeInsight(PeriodWeekly, points, stats)
	assert.Equal(t, "Average per day", weekly.Label)
	assert.InDelta(t, 2.0, weekly.Hours, 1e-9)
	assert.Equal(t, 4, weekly.BestStreak)

	life := ComputeInsight(PeriodLifetime, points, stats)
	assert.Equal(t, "Total Hours", life.Label)
	assert.InDelta(t, 14.0, life.Hours, 1e-9)
}

func TestLevelTracker(t *testing.T) {
	var tr LevelTracker
	assert.False(t, tr.Observe(3), "first observation only primes")
	assert.False(t, tr.Pending())

	assert.False(t, tr.Observe(3))
	assert.True(t, tr.Observe(4))
	assert.True(t, tr.Pending())
	assert.True(t, tr.Pending(), "flag stays up until acknowledged")

	assert.True(t, tr.Acknowledge())
	assert.False(t, tr.Pending())
	assert.False(t, tr.Acknowledge())
}

func TestServiceRefreshRaisesCelebration(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.SetCompletedTasks(7)
	svc := NewService(store, store, clockwork.NewFakeClockAt(now), Config{MinutesPerLevel: 60})

	_, err := store.Append(ctx, sess(50, now))
	require.NoError(t, err)
	stats, up, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, up)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 50, stats.TotalMinutes)

	_, err = store.Append(ctx, sess(20, now))
	require.NoError(t, err)
	stats, up, err = svc.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, up)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 7, stats.TotalTasksCompleted)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.True(t, svc.CelebrationPending())

	assert.True(t, svc.AcknowledgeCelebration())
	assert.False(t, svc.CelebrationPending())

	in, err := svc.Insight(ctx, PeriodLifetime)
	require.NoError(t, err)
	assert.InDelta(t, 70.0/60, in.Hours, 1e-9)
	assert.Equal(t, 1, in.CurrentStreak)
}

func TestServiceTodayMinutes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(store, nil, clockwork.NewFakeClockAt(now), Config{})

	for _, s := range []event.FocusSession{
		sess(25, startOfDay(now)),
		sess(30, now),
		sess(40, startOfDay(now).Add(-time.Nanosecond)),
		sess(50, endOfDay(now).Add(time.Nanosecond)),
	} {
		_, err := store.Append(ctx, s)
		require.NoError(t, err)
	}
	today, err := svc.TodayMinutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 55, today)
}

func TestServiceClosedStore(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Close())
	svc := NewService(store, nil, clockwork.NewFakeClockAt(now), Config{})

	_, err := svc.Stats(context.Background())
	assert.Error(t, err)
	_, err = svc.Chart(context.Background(), PeriodWeekly)
	assert.Error(t, err)
	_, _, err = svc.Refresh(context.Background())
	assert.Error(t, err)
	_, err = svc.TodayMinutes(context.Background())
	assert.Error(t, err)
}
