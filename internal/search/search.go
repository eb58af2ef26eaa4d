// Package search resolves user input ("12", "the-episode-id", "turning
// point") to an episode of a cached episode list.
package search

import (
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/anikino/internal/domain"
)

// Result is a fuzzy title match with highlight positions
type Result struct {
	Episode        domain.EpisodeRef
	MatchedIndexes []int
	Score          int // Higher is better
}

// episodeIndex implements fuzzy.Source over episode titles
type episodeIndex struct {
	episodes    []domain.EpisodeRef
	lowerTitles []string
}

func newEpisodeIndex(episodes []domain.EpisodeRef) *episodeIndex {
	idx := &episodeIndex{episodes: episodes, lowerTitles: make([]string, len(episodes))}
	for i, ep := range episodes {
		idx.lowerTitles[i] = strings.ToLower(ep.Title)
	}
	return idx
}

func (idx *episodeIndex) String(i int) string { return idx.lowerTitles[i] }

func (idx *episodeIndex) Len() int { return len(idx.episodes) }

// FilterEpisodes fuzzy matches query against episode titles, best first
func FilterEpisodes(episodes []domain.EpisodeRef, query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(episodes) == 0 {
		return nil
	}

	idx := newEpisodeIndex(episodes)
	matches := fuzzy.FindFrom(query, idx)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Episode:        idx.episodes[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// FindEpisode picks one episode by exact id, then episode number, then the
// best fuzzy title match.
func FindEpisode(episodes []domain.EpisodeRef, query string) (domain.EpisodeRef, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.EpisodeRef{}, false
	}

	for _, ep := range episodes {
		if ep.EpisodeID == query {
			return ep, true
		}
	}

	if n, err := strconv.Atoi(query); err == nil {
		for _, ep := range episodes {
			if ep.Number == n {
				return ep, true
			}
		}
		return domain.EpisodeRef{}, false
	}

	if results := FilterEpisodes(episodes, query); len(results) > 0 {
		return results[0].Episode, true
	}
	return domain.EpisodeRef{}, false
}
