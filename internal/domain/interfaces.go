package domain

import "context"

// MetadataClient fetches anime metadata (implemented by provider/jikan)
type MetadataClient interface {
	FetchAnimeRecord(ctx context.Context, animeID int) (*AnimeRecord, error)
}

// ProviderAnime is one streaming provider search hit
type ProviderAnime struct {
	ProviderID string
	Title      string
}

// StreamingClient talks to the streaming provider (implemented by provider/hianime)
type StreamingClient interface {
	FetchEpisodeList(ctx context.Context, providerID string) ([]EpisodeRef, error)
	FetchServers(ctx context.Context, episodeID string) ([]Server, error)
	FetchSource(ctx context.Context, episodeID, server string, category Category) (*SourcePayload, error)

	// SearchAnime and ProviderMalID back provider linking
	SearchAnime(ctx context.Context, query string) ([]ProviderAnime, error)
	ProviderMalID(ctx context.Context, providerID string) (int, error)
}

// Store persists records and complements with point lookups.
// Getters return (value, found); a decode failure reads as not found.
type Store interface {
	// === Anime records ===
	GetAnimeRecord(animeID int) (*AnimeRecord, bool)
	SaveAnimeRecord(record AnimeRecord) error

	// === Anime complements ===
	GetAnimeComplement(animeID int) (*AnimeComplement, bool)
	SaveAnimeComplement(c AnimeComplement) error
	ListAnimeComplements() ([]AnimeComplement, error)

	// === Episode complements ===
	GetEpisodeComplement(episodeID string) (*EpisodeComplement, bool)
	SaveEpisodeComplement(c EpisodeComplement) error
	DeleteEpisodeComplement(episodeID string) (bool, error)

	// === Lifecycle ===
	Close() error
}
