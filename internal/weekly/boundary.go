// Package weekly defines the canonical UTC week boundary that identifies
// every weekly advice record.
package weekly

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const Week = 7 * 24 * time.Hour

// ErrInvalidBoundary is returned by ParseBoundary for unusable input.
var ErrInvalidBoundary = errors.New("invalid week boundary")

// Boundary is a weekly cutover: Weekday at Offset past UTC midnight.
// Offset must be in [0, 24h).
type Boundary struct {
	Weekday time.Weekday
	Offset  time.Duration
}

// Default is Sunday 00:00 UTC.
var Default = Boundary{Weekday: time.Sunday}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WeekStart returns the most recent boundary instant at or before t.
func (b Boundary) WeekStart(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	daysBack := (int(t.Weekday()) - int(b.Weekday) + 7) % 7

	start := midnight.Add(-time.Duration(daysBack)*24*time.Hour + b.Offset)
	if start.After(t) {
		start = start.Add(-Week)
	}
	return start
}

// Next returns the first boundary instant strictly after t.
func (b Boundary) Next(t time.Time) time.Time {
	return b.WeekStart(t).Add(Week)
}

// Window returns the aggregation window for a reference instant: from the
// start of the week containing the instant just before ref, up to ref. A ref
// mid-week gives "since week start"; a ref exactly on a boundary gives the
// full week that just closed.
func (b Boundary) Window(ref time.Time) Window {
	ref = ref.UTC()
	return Window{
		Start: b.WeekStart(ref.Add(-time.Nanosecond)),
		End:   ref,
	}
}

func (b Boundary) String() string {
	h := int(b.Offset / time.Hour)
	m := int((b.Offset % time.Hour) / time.Minute)
	return fmt.Sprintf("%s %02d:%02d UTC", b.Weekday, h, m)
}

// ParseBoundary builds a Boundary from a weekday name ("sunday", "Sun") and
// a time of day ("HH:MM", UTC).
func ParseBoundary(weekday, timeOfDay string) (Boundary, error) {
	wd, err := parseWeekday(weekday)
	if err != nil {
		return Boundary{}, err
	}

	timeOfDay = strings.TrimSpace(timeOfDay)
	if timeOfDay == "" {
		timeOfDay = "00:00"
	}
	tod, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return Boundary{}, fmt.Errorf("%w: time of day %q: %v", ErrInvalidBoundary, timeOfDay, err)
	}

	return Boundary{
		Weekday: wd,
		Offset:  time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute,
	}, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: weekday %q", ErrInvalidBoundary, s)
}
