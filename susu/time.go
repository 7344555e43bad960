package susu

import (
	"time"
)

// =============================================================================
// DATE - Calendar day in UTC (ledger dates are day-granular)
// =============================================================================

type Date struct {
	Time time.Time // normalized to UTC midnight
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a "2006-01-02" string, tolerating trailing time parts
// the way legacy rows store them ("2024-03-10 14:22:01").
func ParseDate(s string) (Date, bool) {
	if len(s) < 10 {
		return Date{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}

// Comparison
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// StartOfWeek returns the Monday of d's ISO week.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Time.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// StartOfMonth returns the first day of d's calendar month.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Time.Year(), d.Time.Month(), 1)
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// WINDOW - Inclusive [From, To] date range; zero bounds mean unbounded
// =============================================================================

type Window struct {
	From Date
	To   Date
}

// AllTime is the unbounded window.
var AllTime = Window{}

func (w Window) Unbounded() bool { return w.From.IsZero() && w.To.IsZero() }

// Contains reports whether a date falls inside the window, inclusive.
func (w Window) Contains(d Date) bool {
	if w.Unbounded() {
		return true
	}
	if !w.From.IsZero() && d.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && d.After(w.To) {
		return false
	}
	return true
}

// includes applies window semantics to a resolved transaction date:
// unbounded windows admit everything, including rows with no usable date.
func (w Window) includes(d Date, ok bool) bool {
	if w.Unbounded() {
		return true
	}
	return ok && w.Contains(d)
}
