package calendar

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/PortNumber53/brandhub/internal/models"
	"github.com/PortNumber53/brandhub/internal/platforms"
)

func TestReschedule_PreservesTimeOfDay(t *testing.T) {
	est := time.FixedZone("", -5*3600)
	orig := time.Date(2026, 3, 5, 9, 30, 0, 0, est)
	src := entry("s1", "p1", platforms.Instagram, &orig)

	got, err := Engine{}.Reschedule(src, "2026-03-12")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	want := time.Date(2026, 3, 12, 9, 30, 0, 0, est)
	if !got.ScheduledFor.Equal(want) {
		t.Fatalf("expected %s got %s", want, got.ScheduledFor)
	}
	if _, off := got.ScheduledFor.Zone(); off != -5*3600 {
		t.Fatalf("expected -05:00 offset got %d", off)
	}
	if got.ID != src.ID || got.PostID != src.PostID || got.Platform != src.Platform || got.Timezone != src.Timezone {
		t.Fatalf("non-time fields changed: %+v", got)
	}
	if !src.ScheduledFor.Equal(orig) {
		t.Fatalf("input entry was mutated")
	}
}

func TestReschedule_AnyDateKeepsClock(t *testing.T) {
	loc := time.FixedZone("X", 5*3600+1800)
	orig := time.Date(2026, 6, 15, 23, 47, 12, 500, loc)
	src := entry("s", "p", platforms.Twitter, &orig)
	for d := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC); d.Year() < 2028; d = d.AddDate(0, 0, 11) {
		k := KeyOf(d)
		got, err := Engine{}.Reschedule(src, k)
		if err != nil {
			t.Fatalf("Reschedule(%s): %v", k, err)
		}
		at := got.ScheduledFor.In(loc)
		if KeyOf(at) != k || at.Hour() != 23 || at.Minute() != 47 || at.Second() != 12 {
			t.Fatalf("moved to %s: got %s", k, at)
		}
	}
}

func TestReschedule_SameDayIsNoop(t *testing.T) {
	src := entry("s1", "p1", platforms.Twitter, ts(t, "2026-03-05T09:30:00Z"))
	got, err := Engine{}.Reschedule(src, "2026-03-05")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !got.ScheduledFor.Equal(*src.ScheduledFor) {
		t.Fatalf("expected unchanged timestamp got %s", got.ScheduledFor)
	}
	if got.ScheduledFor == src.ScheduledFor {
		t.Fatalf("expected a fresh timestamp pointer")
	}
}

func TestReschedule_KeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	// EST before the 2026-03-08 switch, EDT after it.
	src := entry("s1", "p1", platforms.LinkedIn, ts(t, "2026-03-05T09:30:00-05:00"))
	src.Timezone = "America/New_York"

	got, err := Engine{}.Reschedule(src, "2026-03-12")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	at := got.ScheduledFor.In(ny)
	if at.Hour() != 9 || at.Minute() != 30 || KeyOf(at) != "2026-03-12" {
		t.Fatalf("expected 09:30 New York time on 2026-03-12 got %s", at)
	}
	if _, off := at.Zone(); off != -4*3600 {
		t.Fatalf("expected EDT offset got %d", off)
	}
	if got.Timezone != "America/New_York" {
		t.Fatalf("timezone changed to %q", got.Timezone)
	}
}

func TestReschedule_SpringForwardGapMovesLater(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	// 02:30 does not exist in New York on 2026-03-08.
	src := entry("s1", "p1", platforms.Twitter, ts(t, "2026-03-01T02:30:00-05:00"))
	src.Timezone = "America/New_York"

	got, err := Engine{}.Reschedule(src, "2026-03-08")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if want := time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC); !got.ScheduledFor.Equal(want) {
		t.Fatalf("expected %s got %s", want, got.ScheduledFor.UTC())
	}
	if at := got.ScheduledFor.In(ny); at.Hour() != 3 || at.Minute() != 30 || KeyOf(at) != "2026-03-08" {
		t.Fatalf("expected 03:30 EDT on 2026-03-08 got %s", at)
	}

	// The next day has 02:30 again.
	got, _ = Engine{}.Reschedule(src, "2026-03-09")
	if at := got.ScheduledFor.In(ny); at.Hour() != 2 || at.Minute() != 30 {
		t.Fatalf("expected 02:30 on 2026-03-09 got %s", at)
	}
}

func TestReschedule_ViewerLocationFrame(t *testing.T) {
	viewer := time.FixedZone("JST", 9*3600)
	// 2026-03-05 23:30 UTC is 2026-03-06 08:30 in the viewer's zone.
	src := entry("s1", "p1", platforms.Twitter, ts(t, "2026-03-05T23:30:00Z"))
	got, err := Engine{Location: viewer}.Reschedule(src, "2026-03-10")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	want := time.Date(2026, 3, 10, 8, 30, 0, 0, viewer)
	if !got.ScheduledFor.Equal(want) {
		t.Fatalf("expected %s got %s", want, got.ScheduledFor)
	}
}

func TestReschedule_Errors(t *testing.T) {
	if _, err := (Engine{}).Reschedule(models.ScheduleEntry{ID: "s"}, "2026-03-05"); !errors.Is(err, ErrMissingSchedule) {
		t.Fatalf("expected ErrMissingSchedule got %v", err)
	}
	src := entry("s1", "p1", platforms.Twitter, ts(t, "2026-03-05T09:30:00Z"))
	if _, err := (Engine{}).Reschedule(src, "03/12/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate got %v", err)
	}
}
