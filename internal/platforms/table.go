package platforms

import (
	"fmt"
)

// Constraint is the fixed publishing envelope of one platform.
type Constraint struct {
	Platform      Platform    `json:"platform"`
	MaxCharacters int         `json:"maxCharacters"`
	MaxHashtags   int         `json:"maxHashtags"`
	MaxMedia      int         `json:"maxMedia"`
	AcceptedMedia []MediaKind `json:"acceptedMedia"`
	// TextOnly is false for networks that refuse a post without an attachment.
	TextOnly bool `json:"textOnly"`
}

// Table is an immutable set of constraints, exactly one per supported platform.
// Build it once with NewTable and share it freely for reads.
type Table struct {
	rows map[Platform]Constraint
}

// NewTable validates rows and returns a table. Every platform in All must be present exactly once.
func NewTable(rows []Constraint) (*Table, error) {
	m := make(map[Platform]Constraint, len(rows))
	for _, c := range rows {
		if !c.Platform.Valid() {
			return nil, fmt.Errorf("constraint table: %w: %q", ErrUnknownPlatform, c.Platform)
		}
		if _, dup := m[c.Platform]; dup {
			return nil, fmt.Errorf("constraint table: duplicate row for %s", c.Platform)
		}
		if c.MaxCharacters <= 0 {
			return nil, fmt.Errorf("constraint table: %s maxCharacters must be > 0", c.Platform)
		}
		if c.MaxHashtags < 0 || c.MaxMedia < 0 {
			return nil, fmt.Errorf("constraint table: %s limits must be >= 0", c.Platform)
		}
		c.AcceptedMedia = append([]MediaKind(nil), c.AcceptedMedia...)
		m[c.Platform] = c
	}
	for _, p := range All() {
		if _, ok := m[p]; !ok {
			return nil, fmt.Errorf("constraint table: missing row for %s", p)
		}
	}
	return &Table{rows: m}, nil
}

// Lookup returns the constraint for p. An unknown platform is a programming error and panics.
func (t *Table) Lookup(p Platform) Constraint {
	c, ok := t.rows[p]
	if !ok {
		panic(fmt.Sprintf("platforms: no constraint for %q", p))
	}
	c.AcceptedMedia = append([]MediaKind(nil), c.AcceptedMedia...)
	return c
}

// Rows returns a copy of the table in display order.
func (t *Table) Rows() []Constraint {
	out := make([]Constraint, 0, len(t.rows))
	for _, p := range All() {
		out = append(out, t.Lookup(p))
	}
	return out
}

var defaultRows = []Constraint{
	{Platform: Twitter, MaxCharacters: 280, MaxHashtags: 5, MaxMedia: 4, AcceptedMedia: []MediaKind{MediaImage, MediaVideo, MediaGIF}, TextOnly: true},
	{Platform: LinkedIn, MaxCharacters: 3000, MaxHashtags: 30, MaxMedia: 9, AcceptedMedia: []MediaKind{MediaImage, MediaVideo, MediaDocument}, TextOnly: true},
	{Platform: Instagram, MaxCharacters: 2200, MaxHashtags: 30, MaxMedia: 10, AcceptedMedia: []MediaKind{MediaImage, MediaVideo}},
	{Platform: Facebook, MaxCharacters: 63206, MaxHashtags: 30, MaxMedia: 10, AcceptedMedia: []MediaKind{MediaImage, MediaVideo, MediaGIF}, TextOnly: true},
	{Platform: TikTok, MaxCharacters: 2200, MaxHashtags: 30, MaxMedia: 1, AcceptedMedia: []MediaKind{MediaVideo}},
	{Platform: YouTube, MaxCharacters: 5000, MaxHashtags: 15, MaxMedia: 1, AcceptedMedia: []MediaKind{MediaVideo}},
	{Platform: Pinterest, MaxCharacters: 500, MaxHashtags: 20, MaxMedia: 1, AcceptedMedia: []MediaKind{MediaImage, MediaVideo}},
	{Platform: Threads, MaxCharacters: 500, MaxHashtags: 1, MaxMedia: 10, AcceptedMedia: []MediaKind{MediaImage, MediaVideo}, TextOnly: true},
	{Platform: Bluesky, MaxCharacters: 300, MaxHashtags: 10, MaxMedia: 4, AcceptedMedia: []MediaKind{MediaImage, MediaVideo}, TextOnly: true},
}

// DefaultTable returns the compiled-in constraint table.
func DefaultTable() *Table {
	t, err := NewTable(defaultRows)
	if err != nil {
		panic(err)
	}
	return t
}
