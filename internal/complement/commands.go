package complement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/metrics"
	"github.com/mmcdole/anikino/internal/schedule"
)

// AnimeRecord returns the cached record, fetching it when missing or forced.
// A forced fetch that fails falls back to the cached record.
func (s *Service) AnimeRecord(ctx context.Context, animeID int, force bool) (*domain.AnimeRecord, error) {
	cached, ok := s.store.GetAnimeRecord(animeID)
	if ok && !force {
		return cached, nil
	}

	record, err := s.fetchRecord(ctx, animeID)
	if err != nil {
		if ok {
			s.logger.Warn("metadata refresh failed, using cache", "animeID", animeID, "error", err)
			return cached, nil
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) fetchRecord(ctx context.Context, animeID int) (*domain.AnimeRecord, error) {
	record, err := s.metadata.FetchAnimeRecord(ctx, animeID)
	if err != nil {
		s.logger.Error("failed to fetch anime record", "animeID", animeID, "error", err)
		return nil, fmt.Errorf("%w: anime %d: %v", domain.ErrMetadataFetchFailed, animeID, err)
	}
	if record.FetchedAt.IsZero() {
		record.FetchedAt = s.now()
	}
	if err := s.store.SaveAnimeRecord(*record); err != nil {
		s.logger.Error("failed to save anime record", "animeID", animeID, "error", err)
	}
	return record, nil
}

// GetOrCreateAnimeComplement returns the cached complement or derives an
// unlinked one from a freshly fetched record.
func (s *Service) GetOrCreateAnimeComplement(ctx context.Context, animeID int) (*domain.AnimeComplement, error) {
	if c, ok := s.store.GetAnimeComplement(animeID); ok {
		return c, nil
	}

	record, ok := s.store.GetAnimeRecord(animeID)
	if !ok {
		var err error
		if record, err = s.fetchRecord(ctx, animeID); err != nil {
			return nil, err
		}
	}

	c := domain.NewAnimeComplement(*record)
	if err := s.store.SaveAnimeComplement(c); err != nil {
		s.logger.Error("failed to save anime complement", "animeID", animeID, "error", err)
	}
	s.logger.Debug("created anime complement", "animeID", animeID)
	return &c, nil
}

// RefreshEpisodesIfStale re-fetches the provider episode list when the
// record's broadcast schedule says a new episode may have aired since the
// last sync, or when forced. Unlinked complements are never refreshed.
// Failures are reported as a warning, never as an error.
func (s *Service) RefreshEpisodesIfStale(ctx context.Context, record domain.AnimeRecord, c domain.AnimeComplement, force bool) RefreshResult {
	result := RefreshResult{Complement: c}

	if !c.IsLinked() {
		metrics.EpisodeRefreshes.WithLabelValues("skipped").Inc()
		return result
	}

	now := s.now()
	if !force && !s.isStale(record, c, now) {
		metrics.EpisodeRefreshes.WithLabelValues("skipped").Inc()
		return result
	}

	// 1. Fetch
	s.logger.Debug("episode list stale, fetching", "animeID", c.AnimeID, "providerID", c.ProviderID, "force", force)
	episodes, err := s.streaming.FetchEpisodeList(ctx, c.ProviderID)
	if err != nil {
		metrics.EpisodeRefreshes.WithLabelValues("failed").Inc()
		s.logger.Warn("episode list fetch failed", "animeID", c.AnimeID, "error", err)
		result.Warning = fmt.Errorf("%w: %v", domain.ErrEpisodeListFetchFailed, err)
		return result
	}
	result.Refreshed = true

	// 2. Persist only when the list actually changed
	if domain.SameEpisodes(c.Episodes, episodes) {
		metrics.EpisodeRefreshes.WithLabelValues("unchanged").Inc()
		return result
	}

	updated := c.WithEpisodes(episodes, now)
	if err := s.store.SaveAnimeComplement(updated); err != nil {
		s.logger.Error("failed to save episode list", "animeID", c.AnimeID, "error", err)
	}
	metrics.EpisodeRefreshes.WithLabelValues("updated").Inc()
	s.logger.Info("episode list updated", "animeID", c.AnimeID, "count", len(episodes))

	result.Complement = updated
	result.Changed = true
	return result
}

// isStale treats an unknown timezone as fresh
func (s *Service) isStale(record domain.AnimeRecord, c domain.AnimeComplement, now time.Time) bool {
	// Never synced: nothing to compare against the schedule
	if len(c.Episodes) == 0 && c.LastEpisodesSyncedAt.IsZero() {
		return true
	}

	stale, err := schedule.IsStale(c.LastEpisodesSyncedAt, record.Broadcast, now)
	if err != nil {
		var tzErr *schedule.TimezoneError
		if errors.As(err, &tzErr) {
			s.logger.Warn("unknown broadcast timezone, assuming fresh", "animeID", c.AnimeID, "timezone", tzErr.Name)
		} else {
			s.logger.Warn("invalid broadcast schedule, assuming fresh", "animeID", c.AnimeID, "error", err)
		}
		return false
	}
	return stale
}

// FetchServers returns the mirrors the provider advertises for an episode
func (s *Service) FetchServers(ctx context.Context, episodeID string) ([]domain.Server, error) {
	servers, err := s.streaming.FetchServers(ctx, episodeID)
	if err != nil {
		s.logger.Error("failed to fetch servers", "episodeID", episodeID, "error", err)
		return nil, err
	}
	s.logger.Debug("fetched servers", "episodeID", episodeID, "count", len(servers))
	return servers, nil
}
