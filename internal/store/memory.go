package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PortNumber53/brandhub/internal/models"
)

// Memory is an in-process Repository used by tests and by local runs without DATABASE_URL.
type Memory struct {
	mu    sync.Mutex
	posts []models.Post
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func clonePost(p models.Post) models.Post {
	out := p
	out.Platforms = append(p.Platforms[:0:0], p.Platforms...)
	out.ScheduleEntries = make([]models.ScheduleEntry, 0, len(p.ScheduleEntries))
	for _, e := range p.ScheduleEntries {
		out.ScheduleEntries = append(out.ScheduleEntries, cloneEntry(e))
	}
	return out
}

func cloneEntry(e models.ScheduleEntry) models.ScheduleEntry {
	if e.ScheduledFor != nil {
		t := *e.ScheduledFor
		e.ScheduledFor = &t
	}
	return e
}

func (m *Memory) find(teamID, postID string) int {
	for i, p := range m.posts {
		if p.ID == postID && p.TeamID == teamID {
			return i
		}
	}
	return -1
}

func (m *Memory) ListPosts(_ context.Context, teamID string, f Filter) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit, skip := f.limit(), f.offset()
	campaign := strings.TrimSpace(f.CampaignID)
	out := []models.Post{}
	// newest first: posts are appended in creation order
	for i := len(m.posts) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		p := m.posts[i]
		if p.TeamID != teamID {
			continue
		}
		if campaign != "" && (p.CampaignID == nil || *p.CampaignID != campaign) {
			continue
		}
		if f.hasRange() && !inRange(p, f.From, f.To) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, clonePost(p))
	}
	return out, nil
}

func inRange(p models.Post, from, to time.Time) bool {
	for _, e := range p.ScheduleEntries {
		if e.HasTime() && !e.ScheduledFor.Before(from) && e.ScheduledFor.Before(to) {
			return true
		}
	}
	return false
}

func (m *Memory) CreatePost(_ context.Context, p models.Post) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	p = clonePost(p)
	for i := range p.ScheduleEntries {
		e := &p.ScheduleEntries[i]
		if strings.TrimSpace(e.ID) == "" {
			e.ID = uuid.NewString()
		}
		e.PostID = p.ID
		if e.Status == "" {
			e.Status = models.ScheduleStatusScheduled
		}
		if e.Timezone == "" {
			e.Timezone = "UTC"
		}
		e.CreatedAt, e.UpdatedAt = now, now
	}
	m.posts = append(m.posts, p)
	return clonePost(p), nil
}

func (m *Memory) DeletePost(_ context.Context, teamID, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(teamID, postID)
	if i < 0 {
		return ErrNotFound
	}
	m.posts = append(m.posts[:i], m.posts[i+1:]...)
	return nil
}

func (m *Memory) GetScheduleEntry(_ context.Context, teamID, postID, scheduleID string) (models.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(teamID, postID)
	if i < 0 {
		return models.ScheduleEntry{}, ErrNotFound
	}
	e, ok := m.posts[i].Entry(scheduleID)
	if !ok {
		return models.ScheduleEntry{}, ErrNotFound
	}
	return cloneEntry(e), nil
}

func (m *Memory) UpdateScheduleTime(_ context.Context, scheduleID string, at time.Time) (models.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pi := range m.posts {
		for ei := range m.posts[pi].ScheduleEntries {
			e := &m.posts[pi].ScheduleEntries[ei]
			if e.ID != scheduleID {
				continue
			}
			t := at
			e.ScheduledFor = &t
			e.UpdatedAt = m.now().UTC()
			m.posts[pi].UpdatedAt = e.UpdatedAt
			return cloneEntry(*e), nil
		}
	}
	return models.ScheduleEntry{}, ErrNotFound
}

func (m *Memory) DeleteScheduleEntry(_ context.Context, teamID, postID, scheduleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(teamID, postID)
	if i < 0 {
		return ErrNotFound
	}
	entries := m.posts[i].ScheduleEntries
	for j, e := range entries {
		if e.ID == scheduleID {
			m.posts[i].ScheduleEntries = append(entries[:j], entries[j+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
