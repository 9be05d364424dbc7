package period

import (
	"fmt"
	"time"

	"github.com/hollyoak/chorebank/internal/model"
)

// Period is the unit over which one assignment and at most one completion is
// expected: a calendar day for daily chores, an ISO week starting Monday for
// weekly chores. Once-off chores use the day of generation as their period.
// All bucketing is done in UTC.
type Period struct {
	Freq  model.Frequency
	Start time.Time
}

// For returns the period containing t for the given frequency.
func For(freq model.Frequency, t time.Time) Period {
	t = t.UTC()
	switch freq {
	case model.FrequencyWeekly:
		return Period{Freq: freq, Start: startOfISOWeek(t)}
	default:
		return Period{Freq: freq, Start: startOfDay(t)}
	}
}

// Parse reconstructs a period from its canonical key.
func Parse(freq model.Frequency, key string) (Period, error) {
	if freq == model.FrequencyWeekly {
		var year, week int
		if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil {
			return Period{}, fmt.Errorf("parse weekly period key %q: %w", key, err)
		}
		// January 4th is always inside ISO week 1.
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
		start := startOfISOWeek(jan4).AddDate(0, 0, (week-1)*7)
		return Period{Freq: freq, Start: start}, nil
	}
	start, err := time.Parse("2006-01-02", key)
	if err != nil {
		return Period{}, fmt.Errorf("parse period key %q: %w", key, err)
	}
	return Period{Freq: freq, Start: start}, nil
}

// Key returns the canonical string form, e.g. "2026-08-29" or "2026-W35".
func (p Period) Key() string {
	if p.Freq == model.FrequencyWeekly {
		year, week := p.Start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return p.Start.Format("2006-01-02")
}

// End returns the exclusive end of the period.
func (p Period) End() time.Time {
	if p.Freq == model.FrequencyWeekly {
		return p.Start.AddDate(0, 0, 7)
	}
	return p.Start.AddDate(0, 0, 1)
}

// Prev returns the immediately preceding period.
func (p Period) Prev() Period {
	if p.Freq == model.FrequencyWeekly {
		return Period{Freq: p.Freq, Start: p.Start.AddDate(0, 0, -7)}
	}
	return Period{Freq: p.Freq, Start: p.Start.AddDate(0, 0, -1)}
}

// Next returns the immediately following period.
func (p Period) Next() Period {
	return Period{Freq: p.Freq, Start: p.End()}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.End())
}

// IsWeekStart reports whether t falls on the first day of the ISO week, the
// weekly generation trigger.
func IsWeekStart(t time.Time) bool {
	return t.UTC().Weekday() == time.Monday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfISOWeek(t time.Time) time.Time {
	t = startOfDay(t)
	// time.Weekday puts Sunday at 0; shift so Monday is the week start.
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
