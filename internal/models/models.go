package models

import (
	"time"

	"github.com/PortNumber53/brandhub/internal/platforms"
)

// ScheduleEntry is one platform-specific publication instant owned by a post.
// A nil or zero ScheduledFor marks a malformed record; calendar code skips it.
type ScheduleEntry struct {
	ID           string             `json:"id"`
	PostID       string             `json:"postId"`
	Platform     platforms.Platform `json:"platform"`
	ScheduledFor *time.Time         `json:"scheduledFor,omitempty"`
	Timezone     string             `json:"timezone"`
	Status       string             `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// HasTime reports whether the entry carries a usable timestamp.
func (e ScheduleEntry) HasTime() bool {
	return e.ScheduledFor != nil && !e.ScheduledFor.IsZero()
}

type Post struct {
	ID              string               `json:"id"`
	TeamID          string               `json:"teamId"`
	CampaignID      *string              `json:"campaignId,omitempty"`
	Title           *string              `json:"title,omitempty"`
	Content         string               `json:"content"`
	Platforms       []platforms.Platform `json:"platforms"`
	ScheduleEntries []ScheduleEntry      `json:"scheduleEntries"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Entry returns the schedule entry with the given id.
func (p Post) Entry(scheduleID string) (ScheduleEntry, bool) {
	for _, e := range p.ScheduleEntries {
		if e.ID == scheduleID {
			return e, true
		}
	}
	return ScheduleEntry{}, false
}

const (
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusPublished = "published"
	ScheduleStatusFailed    = "failed"
)
