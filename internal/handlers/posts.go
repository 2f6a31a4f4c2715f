package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/PortNumber53/brandhub/internal/calendar"
	"github.com/PortNumber53/brandhub/internal/models"
	"github.com/PortNumber53/brandhub/internal/platforms"
	"github.com/PortNumber53/brandhub/internal/store"
)

func parseLimit(r *http.Request, def, min, max int) int {
	raw := queryParam(r, "limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func parseOffset(r *http.Request) int {
	raw := queryParam(r, "offset")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// ListPosts returns a team's posts with their schedule entries, newest first.
// URL: GET /api/posts/team/{teamId}?campaignId=&limit=&offset=
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	teamID := pathVar(r, "teamId")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "missing teamId")
		return
	}
	limit := parseLimit(r, 100, 1, 500)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset := parseOffset(r)
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	posts, err := h.repo.ListPosts(r.Context(), teamID, store.Filter{CampaignID: queryParam(r, "campaignId"), Limit: limit, Offset: offset})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type scheduleInput struct {
	Platform     platforms.Platform `json:"platform"`
	ScheduledFor *time.Time         `json:"scheduledFor"`
	Timezone     string             `json:"timezone"`
}

type createPostRequest struct {
	CampaignID *string              `json:"campaignId"`
	Title      *string              `json:"title"`
	Content    string               `json:"content"`
	Platforms  []platforms.Platform `json:"platforms"`
	Schedules  []scheduleInput      `json:"schedules"`
}

// toPost checks the request and builds the post to store. Only text limits are enforced here;
// attachments are not part of a stored post.
func (h *Handler) toPost(teamID string, req createPostRequest) (models.Post, []platforms.Violation, error) {
	ps := lo.Uniq(req.Platforms)
	seen := map[platforms.Platform]bool{}
	entries := make([]models.ScheduleEntry, 0, len(req.Schedules))
	for _, s := range req.Schedules {
		if !s.Platform.Valid() {
			return models.Post{}, nil, fmt.Errorf("schedule: %w: %q", platforms.ErrUnknownPlatform, s.Platform)
		}
		if seen[s.Platform] {
			return models.Post{}, nil, fmt.Errorf("duplicate schedule for %s", s.Platform)
		}
		seen[s.Platform] = true
		if !lo.Contains(ps, s.Platform) {
			ps = append(ps, s.Platform)
		}
		tz := strings.TrimSpace(s.Timezone)
		if tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return models.Post{}, nil, fmt.Errorf("invalid timezone %q", tz)
			}
		} else if s.ScheduledFor != nil {
			var err error
			if tz, err = zoneForOffset(*s.ScheduledFor); err != nil {
				return models.Post{}, nil, fmt.Errorf("schedule for %s: %w", s.Platform, err)
			}
		}
		entries = append(entries, models.ScheduleEntry{Platform: s.Platform, ScheduledFor: s.ScheduledFor, Timezone: tz})
	}

	violations := lo.Filter(h.agg.Validate(platforms.Draft{Content: req.Content, Platforms: ps}), func(v platforms.Violation, _ int) bool {
		return v.Code == platforms.ViolationTooLong || v.Code == platforms.ViolationTooManyHashtags
	})
	return models.Post{
		TeamID:          teamID,
		CampaignID:      req.CampaignID,
		Title:           req.Title,
		Content:         req.Content,
		Platforms:       ps,
		ScheduleEntries: entries,
	}, violations, nil
}

// zoneForOffset names the fixed IANA zone for t's UTC offset, so an entry sent as
// 21:00-05:00 without a timezone stays on its own day. Etc/GMT signs are inverted.
func zoneForOffset(t time.Time) (string, error) {
	_, off := t.Zone()
	if off == 0 {
		return "UTC", nil
	}
	if off%3600 != 0 {
		return "", fmt.Errorf("timezone is required for offset %s", t.Format("-07:00"))
	}
	h := -off / 3600
	if h < -14 || h > 12 {
		return "", fmt.Errorf("timezone is required for offset %s", t.Format("-07:00"))
	}
	return fmt.Sprintf("Etc/GMT%+d", h), nil
}

// CreatePost stores a post and one schedule entry per target platform.
// URL: POST /api/posts/team/{teamId}
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	teamID := pathVar(r, "teamId")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "missing teamId")
		return
	}
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, violations, err := h.toPost(teamID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(violations) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "content_exceeds_limits", "violations": violations})
		return
	}
	created, err := h.repo.CreatePost(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.WithField("teamId", teamID).WithField("postId", created.ID).Infof("post created entries=%d", len(created.ScheduleEntries))
	writeJSON(w, http.StatusCreated, created)
}

// DeletePost removes a post and all of its schedule entries.
// URL: DELETE /api/posts/{postId}/team/{teamId}
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	teamID, postID := pathVar(r, "teamId"), pathVar(r, "postId")
	if err := h.repo.DeletePost(r.Context(), teamID, postID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.emitEvent(teamID, realtimeEvent{Type: eventPostDeleted, PostID: postID})
	w.WriteHeader(http.StatusNoContent)
}

type rescheduleRequest struct {
	Date string `json:"date"`
}

type rescheduleResponse struct {
	Entry   models.ScheduleEntry `json:"entry"`
	Changed bool                 `json:"changed"`
}

// RescheduleEntry moves one schedule entry to another day from the edit dialog, keeping its time
// of day. It is the non-drag path to the same operation CompleteDrop performs.
// URL: PUT /api/posts/{postId}/schedules/{scheduleId}/team/{teamId}?tz=
func (h *Handler) RescheduleEntry(w http.ResponseWriter, r *http.Request) {
	teamID, postID, scheduleID := pathVar(r, "teamId"), pathVar(r, "postId"), pathVar(r, "scheduleId")
	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := calendar.ParseDateKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc, err := viewerLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.repo.GetScheduleEntry(r.Context(), teamID, postID, scheduleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	moved, err := h.engineFor(loc).Reschedule(entry, target)
	if err != nil {
		h.metrics.Reschedules.WithLabelValues("edit", "rejected").Inc()
		h.fail(w, r, err)
		return
	}
	if moved.ScheduledFor.Equal(*entry.ScheduledFor) {
		h.metrics.Reschedules.WithLabelValues("edit", "unchanged").Inc()
		writeJSON(w, http.StatusOK, rescheduleResponse{Entry: entry})
		return
	}
	saved, err := h.repo.UpdateScheduleTime(r.Context(), scheduleID, *moved.ScheduledFor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.Reschedules.WithLabelValues("edit", "moved").Inc()
	h.emitScheduleUpdated(teamID, saved)
	writeJSON(w, http.StatusOK, rescheduleResponse{Entry: saved, Changed: true})
}

// DeleteSchedule removes one platform's schedule entry from a post.
// URL: DELETE /api/posts/{postId}/schedules/{scheduleId}/team/{teamId}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	teamID, postID, scheduleID := pathVar(r, "teamId"), pathVar(r, "postId"), pathVar(r, "scheduleId")
	if err := h.repo.DeleteScheduleEntry(r.Context(), teamID, postID, scheduleID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.emitEvent(teamID, realtimeEvent{Type: eventScheduleDeleted, PostID: postID, ScheduleID: scheduleID})
	w.WriteHeader(http.StatusNoContent)
}
