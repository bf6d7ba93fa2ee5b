package main

import (
	"strings"
	"testing"
	"time"

	"focustrack/internal/analytics"
	"focustrack/internal/ipc"

	"github.com/stretchr/testify/assert"
)

func TestRenderStatusPlain(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)
	st := ipc.StatusData{
		State:              "Running",
		RemainingSecs:      (12*time.Minute + 5*time.Second).Seconds(),
		InitialMinutes:     25,
		Tag:                "Study",
		EndsAtUnixMs:       now.Add(12 * time.Minute).UnixMilli(),
		TodayMinutes:       90,
		CelebrationPending: true,
	}
	s := renderStatus(painter{}, st, now)
	assert.Contains(t, s, "Running  12:05 / 25 min")
	assert.Contains(t, s, "Tag: Study")
	assert.Contains(t, s, "Today: 1h 30m")
	assert.Contains(t, s, "from now")
	assert.Contains(t, s, "Level up!")
}

func TestRenderStats(t *testing.T) {
	s := renderStats(painter{}, analytics.UserStats{
		Level: 2, Title: "Novice", Progress: 0.5, TotalMinutes: 1234, TotalHours: 20.6,
		HoursToNextLevel: 5, TotalTasksCompleted: 3, CurrentStreak: 1, BestStreak: 4,
	})
	assert.Contains(t, s, "Level 2 · Novice")
	assert.Contains(t, s, "1,234 min")
	assert.Contains(t, s, "1 day (best 4)")
	assert.Contains(t, s, "50%")
}

func TestRenderChartScalesBars(t *testing.T) {
	points := []analytics.ChartDataPoint{
		{Label: "S", Value: 0},
		{Label: "M", Value: 45},
		{Label: "Today", Value: 90, IsCurrentBucket: true},
	}
	s := renderChart(painter{}, points, analytics.Insight{Label: "Average per day", Hours: 0.32})

	lines := strings.Split(s, "\n")
	assert.Equal(t, "    S │ 0m", lines[0])
	assert.Equal(t, strings.Count(lines[2], "█"), 2*strings.Count(lines[1], "█"))
	assert.Contains(t, lines[2], "1h 30m")
	assert.Contains(t, s, "Average per day: 0.32 h")
}
