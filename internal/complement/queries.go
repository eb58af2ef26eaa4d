package complement

import (
	"fmt"

	"github.com/mmcdole/anikino/internal/domain"
)

// Cache-only reads and user-state updates. All updates are read-modify-write
// against the store with no conflict detection: the last writer wins.

func (s *Service) GetAnimeRecord(animeID int) (*domain.AnimeRecord, bool) {
	return s.store.GetAnimeRecord(animeID)
}

func (s *Service) GetAnimeComplement(animeID int) (*domain.AnimeComplement, bool) {
	return s.store.GetAnimeComplement(animeID)
}

func (s *Service) GetEpisodeComplement(episodeID string) (*domain.EpisodeComplement, bool) {
	return s.store.GetEpisodeComplement(episodeID)
}

func (s *Service) UpsertEpisodeComplement(c domain.EpisodeComplement) error {
	if err := s.store.SaveEpisodeComplement(c); err != nil {
		s.logger.Error("failed to save episode complement", "episodeID", c.EpisodeID, "error", err)
		return err
	}
	return nil
}

func (s *Service) SaveAnimeComplement(c domain.AnimeComplement) error {
	if err := s.store.SaveAnimeComplement(c); err != nil {
		s.logger.Error("failed to save anime complement", "animeID", c.AnimeID, "error", err)
		return err
	}
	return nil
}

// DeleteEpisodeComplement reports whether anything was removed
func (s *Service) DeleteEpisodeComplement(episodeID string) (bool, error) {
	return s.store.DeleteEpisodeComplement(episodeID)
}

func (s *Service) SetAnimeFavorite(animeID int, favorite bool) (*domain.AnimeComplement, error) {
	c, ok := s.store.GetAnimeComplement(animeID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrAnimeNotFound, animeID)
	}
	updated := c.WithFavorite(favorite)
	if err := s.SaveAnimeComplement(updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) SetEpisodeFavorite(episodeID string, favorite bool) (*domain.EpisodeComplement, error) {
	c, ok := s.store.GetEpisodeComplement(episodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEpisodeNotFound, episodeID)
	}
	updated := c.WithFavorite(favorite)
	if err := s.UpsertEpisodeComplement(updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateWatchProgress stores a playback position and marks the episode as
// the parent anime's last watched one.
func (s *Service) UpdateWatchProgress(episodeID string, position, duration float64, screenshot []byte) (*domain.EpisodeComplement, error) {
	c, ok := s.store.GetEpisodeComplement(episodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEpisodeNotFound, episodeID)
	}

	updated := c.WithProgress(position, duration, screenshot, s.now())
	if err := s.UpsertEpisodeComplement(updated); err != nil {
		return nil, err
	}
	s.MarkWatched(updated.AnimeID, episodeID)
	return &updated, nil
}

// MarkWatched advances the anime's last watched episode. Missing anime
// complements are ignored.
func (s *Service) MarkWatched(animeID int, episodeID string) {
	anime, ok := s.store.GetAnimeComplement(animeID)
	if !ok || anime.LastEpisodeWatchedID == episodeID {
		return
	}
	if err := s.SaveAnimeComplement(anime.WithLastWatched(episodeID)); err == nil {
		s.logger.Debug("marked watched", "animeID", animeID, "episodeID", episodeID)
	}
}

// FavoriteAnime lists favorited anime complements (full scan)
func (s *Service) FavoriteAnime() ([]domain.AnimeComplement, error) {
	all, err := s.store.ListAnimeComplements()
	if err != nil {
		return nil, err
	}
	var favorites []domain.AnimeComplement
	for _, c := range all {
		if c.IsFavorite {
			favorites = append(favorites, c)
		}
	}
	return favorites, nil
}
