// Package schedule evaluates weekly opening hours.
//
// Days use 0=Sunday..6=Saturday, which is also time.Weekday's numbering.
package schedule

import (
	"time"
)

// Window is one opening-hours row for a single day of the week.
// Open/Close are ignored when Is24Hours or IsClosed is set.
type Window struct {
	DayOfWeek int
	Open      *Clock
	Close     *Clock
	Is24Hours bool
	IsClosed  bool
}

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayName returns the English name for a 0=Sunday day number.
func DayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return dayNames[day]
}

// DayOfWeek maps t to the 0=Sunday convention.
func DayOfWeek(t time.Time) int {
	return int(t.Weekday())
}

// IsOpenNow reports whether any window for at's weekday covers at's time of
// day. Both ends are inclusive. A day with no windows counts as closed.
func IsOpenNow(windows []Window, at time.Time) bool {
	day := DayOfWeek(at)
	now := ClockOf(at)

	for _, w := range windows {
		if w.DayOfWeek != day || w.IsClosed {
			continue
		}
		if w.Is24Hours {
			return true
		}
		if w.Open == nil || w.Close == nil {
			continue
		}
		if *w.Open <= now && now <= *w.Close {
			return true
		}
	}
	return false
}

// IsOpenToday reports whether at's weekday has any window not marked closed,
// regardless of the current time.
func IsOpenToday(windows []Window, at time.Time) bool {
	day := DayOfWeek(at)
	for _, w := range windows {
		if w.DayOfWeek == day && !w.IsClosed {
			return true
		}
	}
	return false
}
