// Package calendar turns scheduled posts into calendar grids.
//
// Every function here is pure: the caller passes the anchor date, view mode and post list on each
// call and owns persistence of whatever Reschedule returns. All date comparisons happen on
// day-granularity DateKeys, never on full timestamps, so two entries at different times of the same
// day land in the same cell.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PortNumber53/brandhub/internal/models"
)

const dateLayout = "2006-01-02"

// DateKey is a calendar day in YYYY-MM-DD form.
type DateKey string

// KeyOf truncates t to its calendar day in t's own location.
func KeyOf(t time.Time) DateKey {
	return DateKey(t.Format(dateLayout))
}

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingSchedule = errors.New("schedule entry has no scheduledFor")
	ErrInvalidView     = errors.New("invalid view mode")
)

// ParseDateKey accepts YYYY-MM-DD (surrounding whitespace ignored).
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return KeyOf(t), nil
}

// civil returns the key as noon UTC, which is safe for day arithmetic with AddDate.
func (k DateKey) civil() (time.Time, error) {
	t, err := time.Parse(dateLayout, string(k))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, string(k))
	}
	return t.Add(12 * time.Hour), nil
}

// In returns local midnight of the day in loc.
func (k DateKey) In(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, string(k))
	}
	return t, nil
}

type ViewMode string

const (
	Month ViewMode = "month"
	Week  ViewMode = "week"
)

// ParseViewMode defaults to Month for an empty value.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Month:
		return Month, nil
	case Week:
		return Week, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
}

// Per-cell caps used by the calendar views.
const (
	MonthCellCap = 3
	WeekCellCap  = 10
)

// Engine holds the immutable options shared by every calendar computation.
//
// WeekStart defaults to Sunday. When Location is set (the viewer's zone) every timestamp is read in
// it; otherwise each entry is read in its own Timezone, falling back to the location carried by
// ScheduledFor.
type Engine struct {
	WeekStart time.Weekday
	Location  *time.Location
}

func (e Engine) local(t time.Time) time.Time {
	if e.Location != nil {
		return t.In(e.Location)
	}
	return t
}

// zones resolves and memoizes the frame an entry is read in.
type zones struct {
	engine Engine
	cache  map[string]*time.Location
}

func (e Engine) zones() *zones {
	return &zones{engine: e, cache: map[string]*time.Location{}}
}

func (z *zones) frameFor(entry models.ScheduleEntry) *time.Location {
	if z.engine.Location != nil {
		return z.engine.Location
	}
	if tz := strings.TrimSpace(entry.Timezone); tz != "" {
		loc, seen := z.cache[tz]
		if !seen {
			loc, _ = time.LoadLocation(tz)
			z.cache[tz] = loc
		}
		if loc != nil {
			return loc
		}
	}
	return entry.ScheduledFor.Location()
}
