package platforms

import (
	"regexp"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Limits that apply when no platform is selected yet (a one-network draft).
const (
	DefaultCharacterLimit = 280
	DefaultMediaLimit     = 4
	DefaultHashtagLimit   = 5
)

// Aggregator reduces a platform selection to its binding limits: the tightest value across every
// selected platform, since the content has to be valid everywhere at once.
type Aggregator struct {
	table *Table
}

func NewAggregator(t *Table) *Aggregator {
	if t == nil {
		t = DefaultTable()
	}
	return &Aggregator{table: t}
}

func (a *Aggregator) Table() *Table { return a.table }

func (a *Aggregator) reduce(ps []Platform, def int, field func(Constraint) int) int {
	if len(ps) == 0 {
		return def
	}
	return lo.Min(lo.Map(ps, func(p Platform, _ int) int { return field(a.table.Lookup(p)) }))
}

func (a *Aggregator) CharacterLimit(ps []Platform) int {
	return a.reduce(ps, DefaultCharacterLimit, func(c Constraint) int { return c.MaxCharacters })
}

func (a *Aggregator) MediaLimit(ps []Platform) int {
	return a.reduce(ps, DefaultMediaLimit, func(c Constraint) int { return c.MaxMedia })
}

func (a *Aggregator) HashtagLimit(ps []Platform) int {
	return a.reduce(ps, DefaultHashtagLimit, func(c Constraint) int { return c.MaxHashtags })
}

// Limits is the combined view served to the composer.
type Limits struct {
	Platforms      []Platform  `json:"platforms"`
	CharacterLimit int         `json:"characterLimit"`
	MediaLimit     int         `json:"mediaLimit"`
	HashtagLimit   int         `json:"hashtagLimit"`
	AcceptedMedia  []MediaKind `json:"acceptedMedia"`
	RequiresMedia  bool        `json:"requiresMedia"`
}

func (a *Aggregator) Limits(ps []Platform) Limits {
	accepted := AllMediaKinds()
	requires := false
	for _, p := range ps {
		c := a.table.Lookup(p)
		accepted = lo.Intersect(accepted, c.AcceptedMedia)
		if !c.TextOnly {
			requires = true
		}
	}
	return Limits{
		Platforms:      append([]Platform{}, ps...),
		CharacterLimit: a.CharacterLimit(ps),
		MediaLimit:     a.MediaLimit(ps),
		HashtagLimit:   a.HashtagLimit(ps),
		AcceptedMedia:  accepted,
		RequiresMedia:  requires,
	}
}

// Draft is a composed post awaiting validation.
type Draft struct {
	Content   string      `json:"content"`
	Media     []MediaKind `json:"media"`
	Platforms []Platform  `json:"platforms"`
}

const (
	ViolationTooLong              = "too_long"
	ViolationTooManyHashtags      = "too_many_hashtags"
	ViolationTooManyMedia         = "too_many_media"
	ViolationMediaRequired        = "media_required"
	ViolationMediaKindUnsupported = "media_kind_unsupported"
)

type Violation struct {
	Code   string    `json:"code"`
	Limit  int       `json:"limit"`
	Actual int       `json:"actual"`
	Kind   MediaKind `json:"kind,omitempty"`
}

var hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// CountHashtags counts hashtag tokens in content.
func CountHashtags(content string) int {
	return len(hashtagRe.FindAllString(content, -1))
}

// Validate checks d against the binding limits of its platforms. A nil result means the draft is
// publishable everywhere it targets.
func (a *Aggregator) Validate(d Draft) []Violation {
	lim := a.Limits(d.Platforms)
	var out []Violation

	if n := utf8.RuneCountInString(d.Content); n > lim.CharacterLimit {
		out = append(out, Violation{Code: ViolationTooLong, Limit: lim.CharacterLimit, Actual: n})
	}
	if n := CountHashtags(d.Content); n > lim.HashtagLimit {
		out = append(out, Violation{Code: ViolationTooManyHashtags, Limit: lim.HashtagLimit, Actual: n})
	}
	if n := len(d.Media); n > lim.MediaLimit {
		out = append(out, Violation{Code: ViolationTooManyMedia, Limit: lim.MediaLimit, Actual: n})
	}
	if lim.RequiresMedia && len(d.Media) == 0 {
		out = append(out, Violation{Code: ViolationMediaRequired, Limit: lim.MediaLimit})
	}
	for _, k := range lo.Uniq(d.Media) {
		if !lo.Contains(lim.AcceptedMedia, k) {
			out = append(out, Violation{Code: ViolationMediaKindUnsupported, Kind: k})
		}
	}
	return out
}
