package resolver

import (
	"github.com/samber/lo"

	"github.com/mmcdole/anikino/internal/domain"
)

// Candidates orders mirrors for an episode:
//
//  1. the preferred query, when it names a server
//  2. servers of the preferred category (default when none), last-listed first
//  3. servers of the other category, last-listed first
//
// Providers list mirrors oldest first, so the last-listed mirror is taken
// as the freshest. Duplicates keep their first position.
func Candidates(
	episodeID string,
	servers []domain.Server,
	preferred *domain.EpisodeSourceQuery,
	defaultCategory domain.Category,
) []domain.EpisodeSourceQuery {
	category := defaultCategory
	if category == "" {
		category = domain.CategorySub
	}

	var out []domain.EpisodeSourceQuery
	if preferred != nil {
		p := preferred.Normalized()
		p.EpisodeID = episodeID
		if p.Category == "" {
			p.Category = category
		}
		category = p.Category
		if p.Server != "" {
			out = append(out, p)
		}
	}

	for _, c := range []domain.Category{category, category.Other()} {
		inCategory := lo.Filter(servers, func(s domain.Server, _ int) bool {
			return s.Category == c
		})
		for _, s := range lo.Reverse(inCategory) {
			out = append(out, domain.EpisodeSourceQuery{
				EpisodeID: episodeID,
				Server:    domain.NormalizeServer(s.Name),
				Category:  c,
			})
		}
	}

	return lo.UniqBy(out, func(q domain.EpisodeSourceQuery) domain.EpisodeSourceQuery {
		return q
	})
}
