package handlers

import (
	"errors"
	"net/http"

	"github.com/PortNumber53/brandhub/internal/calendar"
	"github.com/PortNumber53/brandhub/internal/dragdrop"
	"github.com/PortNumber53/brandhub/internal/models"
)

type beginDragRequest struct {
	PostID     string `json:"postId"`
	ScheduleID string `json:"scheduleId"`
}

// BeginDrag opens a drag session for one schedule entry.
// URL: POST /api/calendar/drag/team/{teamId}
func (h *Handler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	teamID := pathVar(r, "teamId")
	var req beginDragRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if teamID == "" || req.PostID == "" || req.ScheduleID == "" {
		writeError(w, http.StatusBadRequest, "missing teamId, postId or scheduleId")
		return
	}
	s, err := h.drag.BeginDrag(r.Context(), teamID, req.PostID, req.ScheduleID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

type dropRequest struct {
	Token string `json:"token"`
	Date  string `json:"date"`
}

type dropResponse struct {
	TeamID  string               `json:"teamId"`
	PostID  string               `json:"postId"`
	Entry   models.ScheduleEntry `json:"entry"`
	Changed bool                 `json:"changed"`
}

// CompleteDrop lands a drag on a calendar day. A drop that cannot be resolved answers 409.
// URL: POST /api/calendar/drop?tz=
func (h *Handler) CompleteDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	loc, err := viewerLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	coord := h.drag
	if loc != nil {
		coord = coord.In(loc)
	}
	res, err := coord.CompleteDrop(r.Context(), req.Token, calendar.DateKey(req.Date))
	switch {
	case errors.Is(err, dragdrop.ErrStaleDrag):
		h.metrics.StaleDrops.Inc()
		h.metrics.Reschedules.WithLabelValues("drop", "stale").Inc()
		h.fail(w, r, err)
		return
	case err != nil:
		h.metrics.Reschedules.WithLabelValues("drop", "rejected").Inc()
		h.fail(w, r, err)
		return
	}

	if res.Changed {
		h.metrics.Reschedules.WithLabelValues("drop", "moved").Inc()
		h.emitScheduleUpdated(res.Session.TeamID, res.Entry)
	} else {
		h.metrics.Reschedules.WithLabelValues("drop", "unchanged").Inc()
	}
	writeJSON(w, http.StatusOK, dropResponse{TeamID: res.Session.TeamID, PostID: res.Session.PostID, Entry: res.Entry, Changed: res.Changed})
}
