package model

import (
	"errors"
	"fmt"
	"time"
)

const clockLayout = "15:04"

var ErrInvalidClock = errors.New("invalid time of day, expected HH:MM")

// FormatClock renders the wall-clock part of t as HH:MM.
func FormatClock(t time.Time) string {
	return t.Format(clockLayout)
}

// ParseClock validates an HH:MM string and returns hours and minutes.
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return t.Hour(), t.Minute(), nil
}

// At combines the calendar date of day with an HH:MM clock string in loc.
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

var ErrMissingDates = errors.New("start and end dates are required when either is given")

// Span turns a pair of HH:MM clocks into absolute timestamps. Zero dates
// mean the calendar day of now for both ends, so a span that crosses
// midnight without explicit dates ends before it starts. Supplying only
// one of the two dates is an error. An empty endClock resolves to
// startClock.
func Span(startDate, endDate time.Time, startClock, endClock string, now time.Time) (time.Time, time.Time, error) {
	if startDate.IsZero() != endDate.IsZero() {
		return time.Time{}, time.Time{}, ErrMissingDates
	}
	if startDate.IsZero() {
		startDate, endDate = now, now
	}
	if endClock == "" {
		endClock = startClock
	}

	loc := now.Location()
	start, err := At(startDate, startClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := At(endDate, endClock, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
