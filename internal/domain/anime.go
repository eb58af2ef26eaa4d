package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Broadcast describes a weekly recurring airing slot as reported by the
// metadata provider. Any empty field means the slot is unknown.
type Broadcast struct {
	Weekday   string // Provider form, e.g. "Saturdays"
	LocalTime string // "HH:MM" in Timezone
	Timezone  string // IANA zone name, e.g. "Asia/Tokyo"
}

// Complete reports whether every field needed for broadcast math is present
func (b Broadcast) Complete() bool {
	return b.Weekday != "" && b.LocalTime != "" && b.Timezone != ""
}

// AnimeRecord is remote-origin metadata for a series. It is replaced
// wholesale whenever it is fetched again.
type AnimeRecord struct {
	ID           int       // Metadata provider id (MAL id)
	Title        string    // Display title
	EpisodeCount *int      // nil while the series is ongoing and unannounced
	Airing       bool      // Currently broadcasting
	Broadcast    Broadcast // Weekly slot, possibly incomplete
	FetchedAt    time.Time // When this record was fetched
}

// EpisodeRef is one entry of a provider episode list
type EpisodeRef struct {
	EpisodeID string
	Number    int
	Title     string
	IsFiller  bool
}

// AnimeComplement is the local enrichment kept beside an AnimeRecord.
// Values are treated as immutable; use the With* methods to derive updates.
type AnimeComplement struct {
	AnimeID              int
	ProviderID           string       // Streaming provider id; numeric means unlinked
	Episodes             []EpisodeRef // Provider order
	IsFavorite           bool
	LastEpisodeWatchedID string // Empty when nothing was watched yet
	LastEpisodesSyncedAt time.Time
}

// NewAnimeComplement derives the minimal, unlinked complement for a record
func NewAnimeComplement(record AnimeRecord) AnimeComplement {
	return AnimeComplement{
		AnimeID:    record.ID,
		ProviderID: strconv.Itoa(record.ID),
	}
}

// IsLinked reports whether the complement points at a real provider id.
// Purely numeric ids are placeholders copied from the anime id.
func (c AnimeComplement) IsLinked() bool {
	id := strings.TrimSpace(c.ProviderID)
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// Episode looks up an episode by provider episode id
func (c AnimeComplement) Episode(episodeID string) (EpisodeRef, bool) {
	for _, ep := range c.Episodes {
		if ep.EpisodeID == episodeID {
			return ep, true
		}
	}
	return EpisodeRef{}, false
}

func (c AnimeComplement) WithFavorite(favorite bool) AnimeComplement {
	c.IsFavorite = favorite
	return c
}

func (c AnimeComplement) WithProviderID(providerID string) AnimeComplement {
	c.ProviderID = providerID
	return c
}

func (c AnimeComplement) WithLastWatched(episodeID string) AnimeComplement {
	c.LastEpisodeWatchedID = episodeID
	return c
}

// WithEpisodes replaces the episode list and advances the sync timestamp.
// The timestamp never moves backwards.
func (c AnimeComplement) WithEpisodes(episodes []EpisodeRef, syncedAt time.Time) AnimeComplement {
	c.Episodes = slices.Clone(episodes)
	if syncedAt.After(c.LastEpisodesSyncedAt) {
		c.LastEpisodesSyncedAt = syncedAt
	}
	return c
}

// SameEpisodes compares two episode lists by identity, order and content
func SameEpisodes(a, b []EpisodeRef) bool {
	return slices.Equal(a, b)
}
