package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PortNumber53/brandhub/internal/calendar"
	"github.com/PortNumber53/brandhub/internal/store"
)

type calendarResponse struct {
	TeamID    string            `json:"teamId"`
	Anchor    calendar.DateKey  `json:"anchor"`
	View      calendar.ViewMode `json:"view"`
	WeekStart string            `json:"weekStart"`
	CellCap   int               `json:"cellCap"`
	Cells     []calendar.Cell   `json:"cells"`
	Skipped   int               `json:"skipped"`
}

// anchorFrom parses the anchor query parameter, defaulting to today in loc.
func (h *Handler) anchorFrom(r *http.Request, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := queryParam(r, "anchor")
	if raw == "" {
		return h.now().In(loc), nil
	}
	k, err := calendar.ParseDateKey(raw)
	if err != nil {
		return time.Time{}, err
	}
	return k.In(loc)
}

// CalendarView renders the month or week grid around anchor for a team.
// URL: GET /api/calendar/team/{teamId}?anchor=YYYY-MM-DD&view=month|week&campaignId=&tz=
func (h *Handler) CalendarView(w http.ResponseWriter, r *http.Request) {
	teamID := pathVar(r, "teamId")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "missing teamId")
		return
	}
	mode, err := calendar.ParseViewMode(queryParam(r, "view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc, err := viewerLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anchor, err := h.anchorFrom(r, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine := h.engineFor(loc)
	window := engine.ComputeViewWindow(anchor, mode)
	from, _ := window[0].In(time.UTC)
	to, _ := window[len(window)-1].In(time.UTC)
	// Pad by a day on each side so entries stored in far-off zones still reach their local day.
	posts, err := h.repo.ListPosts(r.Context(), teamID, store.Filter{
		CampaignID: queryParam(r, "campaignId"),
		From:       from.AddDate(0, 0, -1),
		To:         to.AddDate(0, 0, 2),
		Limit:      store.NoLimit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	limit := h.caps.For(mode)
	cells, skipped := engine.Cells(anchor, mode, h.now().In(anchor.Location()), posts, limit)
	h.metrics.CalendarRenders.WithLabelValues(string(mode)).Inc()
	if len(skipped) > 0 {
		h.metrics.SkippedEntries.Add(float64(len(skipped)))
		for _, e := range skipped {
			h.log.WithFields(logrus.Fields{"teamId": teamID, "postId": e.PostID, "scheduleId": e.ID}).Warn("schedule entry without scheduledFor left off calendar")
		}
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		TeamID:    teamID,
		Anchor:    calendar.KeyOf(anchor),
		View:      mode,
		WeekStart: engine.WeekStart.String(),
		CellCap:   limit,
		Cells:     cells,
		Skipped:   len(skipped),
	})
}

// NavigateCalendar returns the anchor one period away.
// URL: GET /api/calendar/navigate?anchor=YYYY-MM-DD&view=month|week&dir=next|prev|today&tz=
func (h *Handler) NavigateCalendar(w http.ResponseWriter, r *http.Request) {
	mode, err := calendar.ParseViewMode(queryParam(r, "view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dir, err := calendar.ParseDirection(queryParam(r, "dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc, err := viewerLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anchor, err := h.anchorFrom(r, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if loc == nil {
		loc = time.UTC
	}
	next := calendar.Navigate(anchor, mode, dir, h.now().In(loc))
	writeJSON(w, http.StatusOK, map[string]any{"anchor": calendar.KeyOf(next), "view": mode})
}
