package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/PortNumber53/brandhub/internal/models"
	"github.com/PortNumber53/brandhub/internal/platforms"
)

// Postgres implements Repository over public.posts and public.post_schedules.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const scheduleColumns = `s.id, s.post_id, s.platform, s.scheduled_for, s.timezone, s.status, s.created_at, s.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (models.ScheduleEntry, error) {
	var e models.ScheduleEntry
	var platform string
	var at sql.NullTime
	if err := row.Scan(&e.ID, &e.PostID, &platform, &at, &e.Timezone, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	p, err := platforms.Parse(platform)
	if err != nil {
		return e, fmt.Errorf("schedule %s: %w", e.ID, err)
	}
	e.Platform = p
	e.ScheduledFor = nullTimePtr(at)
	return e, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func (s *Postgres) ListPosts(ctx context.Context, teamID string, f Filter) ([]models.Post, error) {
	var limit sql.NullInt64
	if n := f.limit(); n > 0 {
		limit = sql.NullInt64{Int64: int64(n), Valid: true}
	}
	var campaign sql.NullString
	if c := strings.TrimSpace(f.CampaignID); c != "" {
		campaign = sql.NullString{String: c, Valid: true}
	}
	var from, to sql.NullTime
	if f.hasRange() {
		from = sql.NullTime{Time: f.From, Valid: true}
		to = sql.NullTime{Time: f.To, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.team_id, p.campaign_id, p.title, p.content,
		       COALESCE(p.platforms, ARRAY[]::text[]),
		       p.created_at, p.updated_at
		  FROM public.posts p
		 WHERE p.team_id = $1
		   AND ($2::text IS NULL OR p.campaign_id = $2)
		   AND ($3::timestamptz IS NULL OR EXISTS (
		         SELECT 1 FROM public.post_schedules s
		          WHERE s.post_id = p.id
		            AND s.scheduled_for >= $3
		            AND s.scheduled_for < $4))
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $5 OFFSET $6
	`, teamID, campaign, from, to, limit, f.offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	index := map[string]int{}
	for rows.Next() {
		var p models.Post
		var names []string
		if err := rows.Scan(&p.ID, &p.TeamID, &p.CampaignID, &p.Title, &p.Content, pq.Array(&names), &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Platforms, err = platforms.ParseList(names); err != nil {
			return nil, fmt.Errorf("post %s: %w", p.ID, err)
		}
		p.ScheduleEntries = []models.ScheduleEntry{}
		index[p.ID] = len(posts)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	srows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+`
		  FROM public.post_schedules s
		 WHERE s.post_id = ANY($1)
		 ORDER BY s.scheduled_for ASC NULLS LAST, s.id ASC
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		e, err := scanSchedule(srows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[e.PostID]; ok {
			posts[i].ScheduleEntries = append(posts[i].ScheduleEntries, e)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Postgres) CreatePost(ctx context.Context, p models.Post) (models.Post, error) {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO public.posts (id, team_id, campaign_id, title, content, platforms, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`, p.ID, p.TeamID, p.CampaignID, p.Title, p.Content, pq.Array(platforms.Strings(p.Platforms))).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}

	entries := make([]models.ScheduleEntry, 0, len(p.ScheduleEntries))
	for _, e := range p.ScheduleEntries {
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
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO public.post_schedules (id, post_id, platform, scheduled_for, timezone, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING created_at, updated_at
		`, e.ID, e.PostID, string(e.Platform), e.ScheduledFor, e.Timezone, e.Status).
			Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
			return p, err
		}
		entries = append(entries, e)
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	p.ScheduleEntries = entries
	return p, nil
}

func (s *Postgres) DeletePost(ctx context.Context, teamID, postID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM public.posts WHERE id = $1 AND team_id = $2`, postID, teamID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) GetScheduleEntry(ctx context.Context, teamID, postID, scheduleID string) (models.ScheduleEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		  FROM public.post_schedules s
		  JOIN public.posts p ON p.id = s.post_id
		 WHERE s.id = $1 AND s.post_id = $2 AND p.team_id = $3
	`, scheduleID, postID, teamID)
	e, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

func (s *Postgres) UpdateScheduleTime(ctx context.Context, scheduleID string, at time.Time) (models.ScheduleEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE public.post_schedules s
		   SET scheduled_for = $2,
		       updated_at = NOW()
		 WHERE s.id = $1
		RETURNING `+scheduleColumns, scheduleID, at)
	e, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

func (s *Postgres) DeleteScheduleEntry(ctx context.Context, teamID, postID, scheduleID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM public.post_schedules s
		 USING public.posts p
		 WHERE s.id = $1 AND s.post_id = $2
		   AND p.id = s.post_id AND p.team_id = $3
	`, scheduleID, postID, teamID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
