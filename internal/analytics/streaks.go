package analytics

import (
	"focustrack/internal/event"
	"sort"
	"time"
)

// civilDay is a calendar date in the caller's location.
type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time, loc *time.Location) civilDay {
	t = t.In(loc)
	return civilDay{t.Year(), t.Month(), t.Day()}
}

// addDays steps through calendar dates, so a 23 or 25 hour day still counts once.
func (d civilDay) addDays(n int, loc *time.Location) civilDay {
	return dayOf(time.Date(d.year, d.month, d.day+n, 12, 0, 0, 0, loc), loc)
}

func (d civilDay) before(o civilDay) bool {
	if d.year != o.year {
		return d.year < o.year
	}
	if d.month != o.month {
		return d.month < o.month
	}
	return d.day < o.day
}

// Streaks counts consecutive active days. The current streak is 0 when
// nothing was logged today.
func Streaks(sessions []event.FocusSession, now time.Time) (current, best int) {
	loc := now.Location()
	active := make(map[civilDay]struct{}, len(sessions))
	for _, s := range sessions {
		active[dayOf(s.Timestamp, loc)] = struct{}{}
	}
	if len(active) == 0 {
		return 0, 0
	}

	for d := dayOf(now, loc); ; d = d.addDays(-1, loc) {
		if _, ok := active[d]; !ok {
			break
		}
		current++
	}

	days := make([]civilDay, 0, len(active))
	for d := range active {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].before(days[j]) })

	run := 1
	best = 1
	for i := 1; i < len(days); i++ {
		if days[i-1].addDays(1, loc) == days[i] {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return current, best
}
