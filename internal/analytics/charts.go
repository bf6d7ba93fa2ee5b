package analytics

import (
	"fmt"
	"focustrack/internal/event"
	"strconv"
	"time"
)

type bucket struct {
	label      string
	start, end time.Time // inclusive
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay is the last representable instant of t's calendar day.
func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func sumBuckets(sessions []event.FocusSession, buckets []bucket) []ChartDataPoint {
	points := make([]ChartDataPoint, len(buckets))
	for i, b := range buckets {
		points[i].Label = b.label
	}
	for _, s := range sessions {
		for i, b := range buckets {
			if !s.Timestamp.Before(b.start) && !s.Timestamp.After(b.end) {
				points[i].Value += s.DurationMinutes
				break
			}
		}
	}
	if len(points) > 0 {
		points[len(points)-1].IsCurrentBucket = true
	}
	return points
}

// Weekly is the last seven calendar days, oldest first.
func Weekly(sessions []event.FocusSession, now time.Time) []ChartDataPoint {
	today := startOfDay(now)
	buckets := make([]bucket, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		label := day.Weekday().String()[:1]
		if i == 0 {
			label = "Today"
		}
		buckets = append(buckets, bucket{label: label, start: day, end: endOfDay(day)})
	}
	return sumBuckets(sessions, buckets)
}

// Monthly is six five-day buckets. The newest one starts today and is cut
// off at the end of today.
func Monthly(sessions []event.FocusSession, now time.Time) []ChartDataPoint {
	today := startOfDay(now)
	buckets := make([]bucket, 0, 6)
	for i := 5; i >= 0; i-- {
		start := today.AddDate(0, 0, -5*i)
		b := bucket{
			label: fmt.Sprintf("%dd", 5*i),
			start: start,
			end:   endOfDay(start.AddDate(0, 0, 4)),
		}
		if i == 0 {
			b.label = "Now"
			b.end = endOfDay(today)
		}
		buckets = append(buckets, b)
	}
	return sumBuckets(sessions, buckets)
}

// Yearly is twelve calendar months ending with the current one.
func Yearly(sessions []event.FocusSession, now time.Time) []ChartDataPoint {
	y, m, _ := now.Date()
	buckets := make([]bucket, 0, 12)
	for i := 11; i >= 0; i-- {
		start := time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		buckets = append(buckets, bucket{
			label: start.Month().String()[:3],
			start: start,
			end:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
		})
	}
	return sumBuckets(sessions, buckets)
}

// Lifetime has one bucket per calendar year from the first session's year
// through the current one.
func Lifetime(sessions []event.FocusSession, now time.Time) []ChartDataPoint {
	current := now.Year()
	first := current
	for _, s := range sessions {
		if y := s.Timestamp.In(now.Location()).Year(); y < first {
			first = y
		}
	}
	buckets := make([]bucket, 0, current-first+1)
	for y := first; y <= current; y++ {
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
		buckets = append(buckets, bucket{
			label: strconv.Itoa(y),
			start: start,
			end:   start.AddDate(1, 0, 0).Add(-time.Nanosecond),
		})
	}
	return sumBuckets(sessions, buckets)
}

func Chart(period Period, sessions []event.FocusSession, now time.Time) ([]ChartDataPoint, error) {
	switch period {
	case PeriodWeekly:
		return Weekly(sessions, now), nil
	case PeriodMonthly:
		return Monthly(sessions, now), nil
	case PeriodYearly:
		return Yearly(sessions, now), nil
	case PeriodLifetime:
		return Lifetime(sessions, now), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
}
