package calendar

import (
	"time"

	"github.com/PortNumber53/brandhub/internal/models"
)

// Buckets maps a day to the posts scheduled on it, in encounter order.
type Buckets map[DateKey][]models.Post

// BucketPostsByDate adds one bucket membership per valid schedule entry, keyed by the entry's day.
// A post with N entries appears N times overall, including twice in one day when two of its
// entries share that day. Entries without a usable ScheduledFor are skipped and returned so the
// caller can report them; one bad record never prevents the rest of the calendar from rendering.
func (e Engine) BucketPostsByDate(posts []models.Post) (Buckets, []models.ScheduleEntry) {
	z := e.zones()
	out := Buckets{}
	var skipped []models.ScheduleEntry
	for _, p := range posts {
		for _, entry := range p.ScheduleEntries {
			if !entry.HasTime() {
				skipped = append(skipped, entry)
				continue
			}
			key := KeyOf(entry.ScheduledFor.In(z.frameFor(entry)))
			out[key] = append(out[key], p)
		}
	}
	return out, skipped
}

// Visible is the capped slice of a bucket shown in one cell.
type Visible struct {
	Posts       []models.Post `json:"posts"`
	HiddenCount int           `json:"hiddenCount"`
}

// VisibleItems keeps the first limit posts of bucket and counts the rest. A negative limit is treated as 0.
func VisibleItems(bucket []models.Post, limit int) Visible {
	if limit < 0 {
		limit = 0
	}
	n := len(bucket)
	if n <= limit {
		return Visible{Posts: bucket[:n:n], HiddenCount: 0}
	}
	return Visible{Posts: bucket[:limit:limit], HiddenCount: n - limit}
}

// Cell is one rendered day of the calendar grid.
type Cell struct {
	Date            DateKey       `json:"date"`
	InCurrentPeriod bool          `json:"inCurrentPeriod"`
	IsToday         bool          `json:"isToday"`
	Posts           []models.Post `json:"posts"`
	HiddenCount     int           `json:"hiddenCount"`
}

// Cells composes the view window, the day buckets and the per-cell cap into render-ready cells.
// In week mode every cell belongs to the current period; in month mode only days of anchor's month do.
func (e Engine) Cells(anchor time.Time, mode ViewMode, today time.Time, posts []models.Post, limit int) ([]Cell, []models.ScheduleEntry) {
	window := e.ComputeViewWindow(anchor, mode)
	buckets, skipped := e.BucketPostsByDate(posts)
	month := KeyOf(e.local(anchor))[:7]
	todayKey := KeyOf(e.local(today))

	cells := make([]Cell, 0, len(window))
	for _, day := range window {
		v := VisibleItems(buckets[day], limit)
		shown := v.Posts
		if shown == nil {
			shown = []models.Post{}
		}
		cells = append(cells, Cell{
			Date:            day,
			InCurrentPeriod: mode == Week || day[:7] == month,
			IsToday:         day == todayKey,
			Posts:           shown,
			HiddenCount:     v.HiddenCount,
		})
	}
	return cells, skipped
}
