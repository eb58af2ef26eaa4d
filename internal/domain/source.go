package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is the audio/subtitle variant a mirror serves
type Category string

const (
	CategorySub Category = "sub"
	CategoryDub Category = "dub"
)

// ParseCategory converts user or provider input into a Category
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategorySub:
		return CategorySub, nil
	case CategoryDub:
		return CategoryDub, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// Other returns the opposite category
func (c Category) Other() Category {
	if c == CategoryDub {
		return CategorySub
	}
	return CategoryDub
}

// legacyServerAliases maps retired server names onto their current names
var legacyServerAliases = map[string]string{
	"vidstreaming": "vidsrc",
}

// NormalizeServer lower-cases a server name and resolves legacy aliases
func NormalizeServer(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := legacyServerAliases[n]; ok {
		return alias
	}
	return n
}

// Server is one mirror advertised for an episode
type Server struct {
	Name     string
	Category Category
}

// EpisodeSourceQuery identifies one (episode, server, category) attempt
type EpisodeSourceQuery struct {
	EpisodeID string
	Server    string
	Category  Category
}

// Normalized returns the query with its server name canonicalized
func (q EpisodeSourceQuery) Normalized() EpisodeSourceQuery {
	q.Server = NormalizeServer(q.Server)
	return q
}

// Equal compares two queries after server normalization
func (q EpisodeSourceQuery) Equal(other EpisodeSourceQuery) bool {
	return q.Normalized() == other.Normalized()
}

func (q EpisodeSourceQuery) String() string {
	return fmt.Sprintf("%s/%s/%s", q.EpisodeID, NormalizeServer(q.Server), q.Category)
}

// Stream is one playable rendition returned by a mirror
type Stream struct {
	URL  string
	Type string // "hls", "mp4"
}

// Subtitle is an external subtitle track
type Subtitle struct {
	URL  string
	Lang string
}

// Segment marks a skippable range in seconds
type Segment struct {
	Start int
	End   int
}

// SourcePayload is what a mirror returns for a playable episode
type SourcePayload struct {
	AnimeID   int // Anime id embedded by the provider; 0 when not reported
	StreamURL string
	Streams   []Stream
	Subtitles []Subtitle
	Headers   map[string]string // Headers the stream host expects (Referer)
	Intro     Segment
	Outro     Segment
}

// Playable reports whether the payload carries a stream to play
func (p SourcePayload) Playable() bool {
	return p.StreamURL != ""
}

// EpisodeComplement is the per-episode cache record.
// Values are treated as immutable; use the With* methods to derive updates.
type EpisodeComplement struct {
	EpisodeID           string
	AnimeID             int
	ResolvedQuery       EpisodeSourceQuery
	Servers             []Server // Provider order
	Source              SourcePayload
	IsFavorite          bool
	LastWatchedAt       *time.Time
	LastPositionSeconds *float64
	DurationSeconds     *float64
	Screenshot          []byte
	UpdatedAt           time.Time
}

// ServersFor returns the advertised servers of one category in provider order
func (e EpisodeComplement) ServersFor(category Category) []Server {
	var out []Server
	for _, s := range e.Servers {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// ResumeOffset returns the saved playback position
func (e EpisodeComplement) ResumeOffset() time.Duration {
	if e.LastPositionSeconds == nil {
		return 0
	}
	return time.Duration(*e.LastPositionSeconds * float64(time.Second))
}

func (e EpisodeComplement) WithFavorite(favorite bool) EpisodeComplement {
	e.IsFavorite = favorite
	return e
}

// WithResolvedQuery records a freshly confirmed mirror and its payload
func (e EpisodeComplement) WithResolvedQuery(q EpisodeSourceQuery, servers []Server, source SourcePayload, at time.Time) EpisodeComplement {
	e.ResolvedQuery = q.Normalized()
	if len(servers) > 0 {
		e.Servers = append([]Server(nil), servers...)
	}
	e.Source = source
	e.UpdatedAt = at
	return e
}

// WithProgress records a playback position. A nil screenshot keeps the old one.
func (e EpisodeComplement) WithProgress(position, duration float64, screenshot []byte, at time.Time) EpisodeComplement {
	e.LastPositionSeconds = &position
	e.DurationSeconds = &duration
	e.LastWatchedAt = &at
	if screenshot != nil {
		e.Screenshot = screenshot
	}
	e.UpdatedAt = at
	return e
}
