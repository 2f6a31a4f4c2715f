package calendar

import (
	"fmt"
	"strings"
	"time"
)

// ComputeViewWindow returns the ordered days to render for anchor.
//
// Month mode covers the whole month containing anchor, padded back to the week start and forward to
// the day before the next week start, so its length is always a multiple of 7. Week mode is exactly
// the 7 days from the week start on or before anchor.
func (e Engine) ComputeViewWindow(anchor time.Time, mode ViewMode) []DateKey {
	a := e.local(anchor)
	day := time.Date(a.Year(), a.Month(), a.Day(), 12, 0, 0, 0, time.UTC)

	var start, end time.Time
	switch mode {
	case Week:
		start = e.weekStartOf(day)
		end = start.AddDate(0, 0, 6)
	default:
		first := day.AddDate(0, 0, 1-day.Day())
		last := first.AddDate(0, 1, -1)
		start = e.weekStartOf(first)
		end = last.AddDate(0, 0, (int(e.WeekStart)+6-int(last.Weekday())+7)%7)
	}

	out := make([]DateKey, 0, 42)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, KeyOf(d))
	}
	return out
}

func (e Engine) weekStartOf(day time.Time) time.Time {
	back := (int(day.Weekday()) - int(e.WeekStart) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// Direction is a navigation step applied by the caller to its anchor.
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "prev"
	Today    Direction = "today"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Next, Previous, Today:
		return d, nil
	case "previous":
		return Previous, nil
	}
	return "", fmt.Errorf("invalid direction: %q", s)
}

// Navigate moves anchor one period in dir. Month steps keep the day of month, clamped to the length
// of the target month (Jan 31 -> Feb 28). Today returns now.
func Navigate(anchor time.Time, mode ViewMode, dir Direction, now time.Time) time.Time {
	step := 1
	switch dir {
	case Today:
		return now
	case Previous:
		step = -1
	}
	if mode == Week {
		return anchor.AddDate(0, 0, 7*step)
	}
	y, m, d := anchor.Date()
	first := time.Date(y, m+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
	if n := daysIn(first.Year(), first.Month()); d > n {
		d = n
	}
	return time.Date(first.Year(), first.Month(), d, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
