// Package store is the data-access layer for posts and their per-platform schedule entries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/PortNumber53/brandhub/internal/models"
)

var ErrNotFound = errors.New("not found")

// Filter narrows ListPosts. From/To apply only when both are set and keep posts that have at least
// one schedule entry in [From, To); drafts without entries are then excluded.
//
// Posts come back newest first. Limit 0 means defaultListLimit and NoLimit returns every match;
// Offset skips that many matches for paging.
type Filter struct {
	CampaignID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// NoLimit disables the row cap. Calendar windows use it so a busy day never loses posts.
const NoLimit = -1

func (f Filter) hasRange() bool {
	return !f.From.IsZero() && !f.To.IsZero()
}

const defaultListLimit = 500

// limit resolves Limit to a row cap; 0 means uncapped.
func (f Filter) limit() int {
	switch {
	case f.Limit == 0:
		return defaultListLimit
	case f.Limit < 0:
		return 0
	}
	return f.Limit
}

func (f Filter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// Repository is what the calendar and drag/drop flows need from persistence.
type Repository interface {
	ListPosts(ctx context.Context, teamID string, f Filter) ([]models.Post, error)
	CreatePost(ctx context.Context, p models.Post) (models.Post, error)
	DeletePost(ctx context.Context, teamID, postID string) error
	GetScheduleEntry(ctx context.Context, teamID, postID, scheduleID string) (models.ScheduleEntry, error)
	UpdateScheduleTime(ctx context.Context, scheduleID string, at time.Time) (models.ScheduleEntry, error)
	DeleteScheduleEntry(ctx context.Context, teamID, postID, scheduleID string) error
}
