package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrMetadataFetchFailed indicates anime metadata is unreachable and nothing is cached
	ErrMetadataFetchFailed = errors.New("anime metadata could not be fetched")

	// ErrEpisodeListFetchFailed indicates the provider episode list could not be refreshed
	ErrEpisodeListFetchFailed = errors.New("episode list could not be refreshed")

	// ErrNoEpisodesAvailable indicates the anime has no episodes to play
	ErrNoEpisodesAvailable = errors.New("no episodes available")

	// ErrNoServersAvailable indicates the provider advertised no mirrors for an episode
	ErrNoServersAvailable = errors.New("no mirrors configured for this episode")

	// ErrNoPlayableSource indicates every candidate mirror failed or is cooling down
	ErrNoPlayableSource = errors.New("no playable source found")

	// ErrMirrorMismatch indicates a mirror answered with another anime's data
	ErrMirrorMismatch = errors.New("mirror returned data for a different anime")

	// ErrEmptySource indicates a mirror answered without any stream
	ErrEmptySource = errors.New("mirror returned no stream")

	// ErrAnimeNotFound indicates no complement is cached for the anime
	ErrAnimeNotFound = errors.New("anime not found")

	// ErrEpisodeNotFound indicates no complement is cached for the episode
	ErrEpisodeNotFound = errors.New("episode not found")

	// ErrProviderNotLinked indicates no provider entry could be matched to the anime
	ErrProviderNotLinked = errors.New("anime is not linked to the streaming provider")

	// ErrInvalidCategory indicates a category other than sub or dub
	ErrInvalidCategory = errors.New("invalid category")
)
