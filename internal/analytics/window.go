package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used for business dates.
const DateLayout = "2006-01-02"

var ErrUnknownGranularity = errors.New("granularity must be daily, weekly or monthly")

type Granularity int

const (
	Daily Granularity = iota
	Weekly
	Monthly
)

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	return Daily, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

func (g Granularity) String() string {
	switch g {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "daily"
	}
}

func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Window is an inclusive range of ISO dates. Bounds compare as strings.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WindowFor returns the reporting window ending at (or, for monthly,
// containing) the calendar day of reference. Weekly is the trailing seven
// days, not a calendar week.
func WindowFor(reference time.Time, g Granularity) Window {
	y, m, d := reference.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch g {
	case Weekly:
		return Window{Start: day.AddDate(0, 0, -6).Format(DateLayout), End: day.Format(DateLayout)}
	case Monthly:
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: first.Format(DateLayout), End: first.AddDate(0, 1, -1).Format(DateLayout)}
	default:
		return Window{Start: day.Format(DateLayout), End: day.Format(DateLayout)}
	}
}

// Contains reports whether date is a valid ISO date inside the window.
func (w Window) Contains(date string) bool {
	if !ValidDate(date) {
		return false
	}
	return date >= w.Start && date <= w.End
}

// Label is the human readable period, e.g. "2024-03-09 to 2024-03-15".
func (w Window) Label() string {
	if w.Start == w.End {
		return w.Start
	}
	return w.Start + " to " + w.End
}

// ValidDate accepts only zero-padded YYYY-MM-DD dates that exist.
func ValidDate(date string) bool {
	if len(date) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// ParseDate parses a business date; the result is midnight UTC.
func ParseDate(date string) (time.Time, error) {
	if !ValidDate(date) {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return time.Parse(DateLayout, date)
}
