package complement

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/anikino/internal/domain"
)

// maxLinkCandidates caps the provider lookups made while linking
const maxLinkCandidates = 15

// LinkProvider searches the streaming provider for the record's title and
// links the first candidate whose provider page reports the same MAL id.
// Already linked complements are returned unchanged.
func (s *Service) LinkProvider(ctx context.Context, record domain.AnimeRecord) (*domain.AnimeComplement, error) {
	c, ok := s.store.GetAnimeComplement(record.ID)
	if !ok {
		fresh := domain.NewAnimeComplement(record)
		c = &fresh
	}
	if c.IsLinked() {
		return c, nil
	}

	hits, err := s.streaming.SearchAnime(ctx, record.Title)
	if err != nil {
		s.logger.Warn("provider search failed", "animeID", record.ID, "title", record.Title, "error", err)
		return nil, fmt.Errorf("%w: search %q: %v", domain.ErrProviderNotLinked, record.Title, err)
	}

	for i, hit := range rankByTitle(record.Title, hits) {
		if i >= maxLinkCandidates {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		malID, err := s.streaming.ProviderMalID(ctx, hit.ProviderID)
		if err != nil {
			s.logger.Debug("candidate lookup failed", "providerID", hit.ProviderID, "error", err)
			continue
		}
		if malID != record.ID {
			continue
		}

		linked := c.WithProviderID(hit.ProviderID)
		if err := s.SaveAnimeComplement(linked); err != nil {
			return nil, err
		}
		s.logger.Info("linked provider", "animeID", record.ID, "providerID", hit.ProviderID)
		return &linked, nil
	}

	return nil, fmt.Errorf("%w: %q (%d candidates)", domain.ErrProviderNotLinked, record.Title, len(hits))
}

// rankByTitle orders search hits by closeness to title. Fuzzy matches come
// first by distance; the rest follow by edit distance. Ties keep provider order.
func rankByTitle(title string, hits []domain.ProviderAnime) []domain.ProviderAnime {
	if len(hits) == 0 {
		return nil
	}

	query := strings.ToLower(title)
	titles := make([]string, len(hits))
	for i, h := range hits {
		titles[i] = strings.ToLower(h.Title)
	}

	ranks := fuzzy.RankFindFold(query, titles)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]domain.ProviderAnime, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	for _, r := range ranks {
		out = append(out, hits[r.OriginalIndex])
		seen[r.OriginalIndex] = true
	}

	var rest []int
	for i := range hits {
		if !seen[i] {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return fuzzy.LevenshteinDistance(query, titles[rest[i]]) < fuzzy.LevenshteinDistance(query, titles[rest[j]])
	})
	for _, i := range rest {
		out = append(out, hits[i])
	}
	return out
}
