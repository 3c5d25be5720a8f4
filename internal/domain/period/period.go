// Package period resolves named reporting periods into time windows.
package period

import (
	"strings"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
)

// Period names a reporting window.
type Period string

const (
	AllTime Period = "all_time"
	Day     Period = "day"
	Week    Period = "week"
	Month   Period = "month"
	Year    Period = "year"
)

// All lists the supported periods.
var All = []Period{AllTime, Day, Week, Month, Year}

// Parse validates s. An empty string yields def.
func Parse(s string, def Period) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	p := Period(s)
	for _, known := range All {
		if p == known {
			return p, nil
		}
	}
	return "", model.Invalid("period", "unknown period %q", s)
}

// Window is the closed interval [Start, End]. A zero Start means unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool { return !w.Start.IsZero() }

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	if t.After(w.End) {
		return false
	}
	return w.Start.IsZero() || !t.Before(w.Start)
}

// Resolve returns the window for p ending at now. Bounds are UTC.
// Unknown periods resolve like AllTime.
func Resolve(p Period, now time.Time) Window {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	w := Window{End: now}
	switch p {
	case Day:
		w.Start = midnight
	case Week:
		// Monday is the first day of the week.
		offset := (int(now.Weekday()) + 6) % 7
		w.Start = midnight.AddDate(0, 0, -offset)
	case Month:
		w.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Year:
		w.Start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return w
}
