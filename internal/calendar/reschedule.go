package calendar

import (
	"time"

	"github.com/PortNumber53/brandhub/internal/models"
)

// Reschedule moves entry to newDate keeping its wall-clock time of day (hour, minute, second) in the
// entry's frame. Only ScheduledFor changes; Timezone and the rest of the entry are copied as is.
// Nothing is persisted here.
//
// A time of day that does not exist on newDate (inside a spring-forward gap) is read with the offset
// in effect before the jump, so 02:30 on a 02:00->03:00 day becomes 03:30.
func (e Engine) Reschedule(entry models.ScheduleEntry, newDate DateKey) (models.ScheduleEntry, error) {
	if !entry.HasTime() {
		return entry, ErrMissingSchedule
	}
	day, err := newDate.civil()
	if err != nil {
		return entry, err
	}

	loc := e.zones().frameFor(entry)
	cur := entry.ScheduledFor.In(loc)
	if KeyOf(cur) == newDate {
		// Same day: hand back the original instant so ambiguous DST hours are not re-resolved.
		same := *entry.ScheduledFor
		entry.ScheduledFor = &same
		return entry, nil
	}

	next := time.Date(day.Year(), day.Month(), day.Day(), cur.Hour(), cur.Minute(), cur.Second(), cur.Nanosecond(), loc)
	if next.Hour() != cur.Hour() || next.Minute() != cur.Minute() {
		wall := time.Date(day.Year(), day.Month(), day.Day(), cur.Hour(), cur.Minute(), cur.Second(), cur.Nanosecond(), time.UTC)
		_, before := wall.Add(-24 * time.Hour).In(loc).Zone()
		next = wall.Add(-time.Duration(before) * time.Second).In(loc)
	}
	entry.ScheduledFor = &next
	return entry, nil
}
