package reporting

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("invalid date range")

// DayLayout is the query format for range bounds.
const DayLayout = "2006-01-02"

// DefaultDashboardDays is how far back the dashboard looks when no range is given.
const DefaultDashboardDays = 7

// Range is an inclusive range of calendar days. A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DefaultRange covers the last DefaultDashboardDays days up to and including today.
func DefaultRange(now time.Time, loc *time.Location) Range {
	today := startOfDay(now, loc)
	return Range{From: today.AddDate(0, 0, -DefaultDashboardDays), To: today}
}

// ParseRange reads "YYYY-MM-DD" bounds. Empty strings leave the bound open.
func ParseRange(from, to string, loc *time.Location) (Range, error) {
	var r Range
	var err error
	if from != "" {
		if r.From, err = time.ParseInLocation(DayLayout, from, loc); err != nil {
			return Range{}, fmt.Errorf("%w: from %q", ErrInvalidRange, from)
		}
	}
	if to != "" {
		if r.To, err = time.ParseInLocation(DayLayout, to, loc); err != nil {
			return Range{}, fmt.Errorf("%w: to %q", ErrInvalidRange, to)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return Range{}, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return r, nil
}

func (r Range) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains compares by calendar day in the bounds' location. Undated orders only
// match an open range.
func (r Range) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !r.From.IsZero() && startOfDay(t, r.From.Location()).Before(r.From) {
		return false
	}
	if !r.To.IsZero() && startOfDay(t, r.To.Location()).After(r.To) {
		return false
	}
	return true
}
