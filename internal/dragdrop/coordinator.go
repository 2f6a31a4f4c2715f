// Package dragdrop implements the two-phase drag contract of the calendar: a drag captures which
// schedule entry is moving, and the drop resolves that identity against the store, reschedules
// the entry onto the target day and persists it.
package dragdrop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PortNumber53/brandhub/internal/calendar"
	"github.com/PortNumber53/brandhub/internal/models"
	"github.com/PortNumber53/brandhub/internal/store"
)

// ErrStaleDrag means the dragged entry could not be resolved at drop time. Nothing was written.
var ErrStaleDrag = errors.New("could not move post")

const DefaultTTL = 10 * time.Minute

type Result struct {
	Session Session
	Entry   models.ScheduleEntry
	Changed bool
}

type Coordinator struct {
	engine   calendar.Engine
	repo     store.Repository
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
	log      *logrus.Entry
}

func NewCoordinator(engine calendar.Engine, repo store.Repository, sessions SessionStore, ttl time.Duration, log *logrus.Entry) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{engine: engine, repo: repo, sessions: sessions, ttl: ttl, now: time.Now, log: log}
}

// In returns a coordinator whose drops are computed in the viewer's location. A nil loc keeps the
// entry's own frame.
func (c *Coordinator) In(loc *time.Location) *Coordinator {
	cp := *c
	cp.engine.Location = loc
	return &cp
}

// BeginDrag records which entry the user picked up. The entry must exist and be on the calendar.
func (c *Coordinator) BeginDrag(ctx context.Context, teamID, postID, scheduleID string) (Session, error) {
	teamID, postID, scheduleID = strings.TrimSpace(teamID), strings.TrimSpace(postID), strings.TrimSpace(scheduleID)
	entry, err := c.repo.GetScheduleEntry(ctx, teamID, postID, scheduleID)
	if err != nil {
		return Session{}, err
	}
	if !entry.HasTime() {
		return Session{}, calendar.ErrMissingSchedule
	}
	s := Session{
		Token:      uuid.NewString(),
		TeamID:     teamID,
		PostID:     postID,
		ScheduleID: scheduleID,
		StartedAt:  c.now().UTC(),
	}
	if err := c.sessions.Put(ctx, s, c.ttl); err != nil {
		return Session{}, err
	}
	c.log.WithFields(logrus.Fields{"teamId": teamID, "postId": postID, "scheduleId": scheduleID}).Debug("drag started")
	return s, nil
}

// CompleteDrop consumes the session and moves its entry onto target, keeping the time of day.
// A drop on the entry's current day returns Changed=false and writes nothing.
func (c *Coordinator) CompleteDrop(ctx context.Context, token string, target calendar.DateKey) (Result, error) {
	key, err := calendar.ParseDateKey(string(target))
	if err != nil {
		return Result{}, err
	}
	s, ok, err := c.sessions.Take(ctx, strings.TrimSpace(token))
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, c.stale(s, "unknown or expired token")
	}

	entry, err := c.repo.GetScheduleEntry(ctx, s.TeamID, s.PostID, s.ScheduleID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Session: s}, c.stale(s, "entry no longer exists")
	}
	if err != nil {
		return Result{Session: s}, err
	}

	moved, err := c.engine.Reschedule(entry, key)
	if errors.Is(err, calendar.ErrMissingSchedule) {
		return Result{Session: s}, c.stale(s, "entry was unscheduled")
	}
	if err != nil {
		return Result{Session: s}, err
	}
	if moved.ScheduledFor.Equal(*entry.ScheduledFor) {
		return Result{Session: s, Entry: entry}, nil
	}

	saved, err := c.repo.UpdateScheduleTime(ctx, s.ScheduleID, *moved.ScheduledFor)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Session: s}, c.stale(s, "entry deleted during drop")
	}
	if err != nil {
		return Result{Session: s}, err
	}
	c.log.WithFields(logrus.Fields{
		"teamId":     s.TeamID,
		"postId":     s.PostID,
		"scheduleId": s.ScheduleID,
		"from":       entry.ScheduledFor.UTC().Format(time.RFC3339),
		"to":         saved.ScheduledFor.UTC().Format(time.RFC3339),
	}).Info("entry rescheduled by drop")
	return Result{Session: s, Entry: saved, Changed: true}, nil
}

func (c *Coordinator) stale(s Session, reason string) error {
	c.log.WithFields(logrus.Fields{"teamId": s.TeamID, "postId": s.PostID, "scheduleId": s.ScheduleID}).Warnf("stale drop: %s", reason)
	return fmt.Errorf("%w: %s", ErrStaleDrag, reason)
}
