package clock

import "time"

// Clock supplies the default reference date for reports.
type Clock interface {
	Today() time.Time
}

// System reads the wall clock in a fixed location.
type System struct {
	Location *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{Location: loc}
}

func (s System) Today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Fixed always returns the same day.
type Fixed struct {
	Day time.Time
}

func (f Fixed) Today() time.Time {
	return time.Date(f.Day.Year(), f.Day.Month(), f.Day.Day(), 0, 0, 0, 0, time.UTC)
}
