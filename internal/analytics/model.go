// Package analytics derives levels, streaks and period charts from the
// focus session ledger. Everything is recomputed from a full snapshot;
// nothing is maintained incrementally.
package analytics

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMinutesPerLevel is ten hours of focus per level.
const DefaultMinutesPerLevel = 600

var ErrUnknownPeriod = errors.New("analytics: unknown period")

type Config struct {
	MinutesPerLevel int
}

func (c Config) minutesPerLevel() int {
	if c.MinutesPerLevel <= 0 {
		return DefaultMinutesPerLevel
	}
	return c.MinutesPerLevel
}

// UserStats is the profile summary shown next to the charts.
type UserStats struct {
	Level               int     `json:"level"`
	Title               string  `json:"title"`
	Progress            float64 `json:"progress"` // toward next level, [0,1)
	TotalMinutes        int     `json:"total_minutes"`
	TotalHours          float64 `json:"total_hours"`
	HoursToNextLevel    int     `json:"hours_to_next_level"`
	TotalTasksCompleted int     `json:"total_tasks_completed"`
	CurrentStreak       int     `json:"current_streak"`
	BestStreak          int     `json:"best_streak"`
}

// ChartDataPoint is one bucket of a period chart, in minutes.
type ChartDataPoint struct {
	Label           string `json:"label"`
	Value           int    `json:"value"`
	IsCurrentBucket bool   `json:"is_current_bucket"`
}

type Period string

const (
	PeriodWeekly   Period = "weekly"
	PeriodMonthly  Period = "monthly"
	PeriodYearly   Period = "yearly"
	PeriodLifetime Period = "lifetime"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodLifetime:
		return p, nil
	case "":
		return PeriodWeekly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Days is the averaging denominator of the period, 0 for lifetime.
func (p Period) Days() int {
	switch p {
	case PeriodWeekly:
		return 7
	case PeriodMonthly:
		return 30
	case PeriodYearly:
		return 365
	}
	return 0
}

// Insight is the one-line summary under a chart.
type Insight struct {
	Period        Period  `json:"period"`
	Label         string  `json:"label"`
	Hours         float64 `json:"hours"`
	CurrentStreak int     `json:"current_streak"`
	BestStreak    int     `json:"best_streak"`
}
