package main

import (
	"fmt"
	"strings"
	"time"

	"focustrack/internal/analytics"
	"focustrack/internal/ipc"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A90E2"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

const barWidth = 30

// painter applies styles only when output goes to a terminal.
type painter struct {
	color bool
}

func (p painter) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p painter) box(text string) string {
	if !p.color {
		return text
	}
	return boxStyle.Render(text)
}

func clock(secs float64) string {
	d := time.Duration(secs * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}

func renderStatus(p painter, st ipc.StatusData, now time.Time) string {
	var b strings.Builder

	state := st.State
	switch st.State {
	case "Running":
		state = p.paint(runningStyle, state)
	case "Paused":
		state = p.paint(pausedStyle, state)
	default:
		state = p.paint(idleStyle, state)
	}
	fmt.Fprintf(&b, "%s  %s / %d min\n", state, clock(st.RemainingSecs), st.InitialMinutes)
	fmt.Fprintf(&b, "Tag: %s\n", st.Tag)
	fmt.Fprintf(&b, "Today: %s\n", minutes(st.TodayMinutes))
	if st.EndsAtUnixMs > 0 {
		end := time.UnixMilli(st.EndsAtUnixMs)
		fmt.Fprintf(&b, "Ends %s (%s)\n", humanize.RelTime(end, now, "ago", "from now"), end.Format(time.Kitchen))
	}
	if st.CelebrationPending {
		b.WriteString(p.paint(currentStyle, "Level up! Run 'focustrack-cli celebrate ack' to dismiss.") + "\n")
	}
	return b.String()
}

func renderStats(p painter, s analytics.UserStats) string {
	var b strings.Builder
	b.WriteString(p.paint(titleStyle, fmt.Sprintf("Level %d · %s", s.Level, s.Title)) + "\n")

	filled := int(s.Progress * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(&b, "%s %.0f%%  (%d h to next level)\n", p.paint(barStyle, bar), s.Progress*100, s.HoursToNextLevel)

	fmt.Fprintf(&b, "Focused:  %s min (%s h)\n", humanize.Comma(int64(s.TotalMinutes)), humanize.FormatFloat("#,###.#", s.TotalHours))
	fmt.Fprintf(&b, "Tasks:    %s completed\n", humanize.Comma(int64(s.TotalTasksCompleted)))
	fmt.Fprintf(&b, "Streak:   %d %s (best %d)\n", s.CurrentStreak, plural(s.CurrentStreak, "day"), s.BestStreak)
	return p.box(strings.TrimRight(b.String(), "\n"))
}

func renderChart(p painter, points []analytics.ChartDataPoint, in analytics.Insight) string {
	var b strings.Builder

	top, labelWidth := 0, 0
	for _, pt := range points {
		if pt.Value > top {
			top = pt.Value
		}
		if len(pt.Label) > labelWidth {
			labelWidth = len(pt.Label)
		}
	}
	for _, pt := range points {
		n := 0
		if top > 0 {
			n = pt.Value * barWidth / top
		}
		style := barStyle
		if pt.IsCurrentBucket {
			style = currentStyle
		}
		bar := p.paint(style, strings.Repeat("█", n))
		fmt.Fprintf(&b, "%*s │%s %s\n", labelWidth, pt.Label, bar, minutes(pt.Value))
	}
	fmt.Fprintf(&b, "%s: %s h\n", in.Label, humanize.FormatFloat("#,###.##", in.Hours))
	fmt.Fprintf(&b, "Streak: %d (best %d)\n", in.CurrentStreak, in.BestStreak)
	return b.String()
}

func minutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
