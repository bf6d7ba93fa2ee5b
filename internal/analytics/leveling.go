package analytics

import (
	"focustrack/internal/event"
	"time"
)

// ComputeStats builds the profile summary from a ledger snapshot.
func ComputeStats(sessions []event.FocusSession, tasksCompleted int, now time.Time, cfg Config) UserStats {
	total := 0
	for _, s := range sessions {
		total += s.DurationMinutes
	}
	stats := levelStats(total, cfg)
	stats.TotalTasksCompleted = tasksCompleted
	stats.CurrentStreak, stats.BestStreak = Streaks(sessions, now)
	return stats
}

// levelStats fills the fields that depend on the total alone.
func levelStats(total int, cfg Config) UserStats {
	level, progress, hoursToNext := Level(total, cfg)
	return UserStats{
		Level:            level,
		Title:            Title(level),
		Progress:         progress,
		TotalMinutes:     total,
		TotalHours:       float64(total) / 60,
		HoursToNextLevel: hoursToNext,
	}
}

// Level maps total focused minutes to a level, the fraction of the way to
// the next one, and the whole hours still missing.
func Level(totalMinutes int, cfg Config) (level int, progress float64, hoursToNext int) {
	per := cfg.minutesPerLevel()
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	into := totalMinutes % per
	level = totalMinutes/per + 1
	progress = float64(into) / float64(per)
	hoursToNext = per/60 - into/60
	return level, progress, hoursToNext
}

func Title(level int) string {
	switch {
	case level <= 10:
		return "Novice"
	case level <= 50:
		return "Apprentice"
	case level <= 100:
		return "Adept"
	case level <= 300:
		return "Expert"
	case level <= 600:
		return "Master"
	case level <= 999:
		return "Grandmaster"
	default:
		return "Legend"
	}
}
