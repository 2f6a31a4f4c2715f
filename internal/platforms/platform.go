// Package platforms holds the per-network publishing constraints and the reductions that turn a
// selection of target networks into the limits a composed post has to respect.
package platforms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Platform identifies a supported social network.
type Platform string

const (
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Pinterest Platform = "pinterest"
	Threads   Platform = "threads"
	Bluesky   Platform = "bluesky"
)

// All lists every supported platform in display order.
func All() []Platform {
	return []Platform{Twitter, LinkedIn, Instagram, Facebook, TikTok, YouTube, Pinterest, Threads, Bluesky}
}

var ErrUnknownPlatform = errors.New("unknown platform")

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return lo.Contains(All(), p)
}

func (p Platform) String() string { return string(p) }

// UnmarshalText rejects unsupported names so that decoded request bodies only ever carry known values.
func (p *Platform) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse normalizes a user-supplied platform name (trim + lowercase).
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// ParseList normalizes and dedupes a list of names, keeping first-seen order.
// Blank entries are ignored.
func ParseList(names []string) ([]Platform, error) {
	out := make([]Platform, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		p, err := Parse(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return lo.Uniq(out), nil
}

// Strings converts a platform list back to plain names (for storage).
func Strings(ps []Platform) []string {
	return lo.Map(ps, func(p Platform, _ int) string { return string(p) })
}

// MediaKind classifies an attachment.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaGIF      MediaKind = "gif"
	MediaDocument MediaKind = "document"
)

func AllMediaKinds() []MediaKind {
	return []MediaKind{MediaImage, MediaVideo, MediaGIF, MediaDocument}
}
