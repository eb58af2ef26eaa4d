package api

import (
	"time"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/playback"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type playRequest struct {
	EpisodeID    string `json:"episodeId"`
	Server       string `json:"server"`
	Category     string `json:"category"`
	ForceRefresh bool   `json:"forceRefresh"`
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

type progressRequest struct {
	Position   float64 `json:"position"`
	Duration   float64 `json:"duration"`
	Screenshot []byte  `json:"screenshot,omitempty"` // base64 in JSON
}

type queryResponse struct {
	EpisodeID string `json:"episodeId"`
	Server    string `json:"server"`
	Category  string `json:"category"`
}

func newQueryResponse(q domain.EpisodeSourceQuery) queryResponse {
	return queryResponse{EpisodeID: q.EpisodeID, Server: q.Server, Category: string(q.Category)}
}

type subtitleResponse struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}

type sourceResponse struct {
	StreamURL string             `json:"streamUrl"`
	Subtitles []subtitleResponse `json:"subtitles,omitempty"`
	Headers   map[string]string  `json:"headers,omitempty"`
	Intro     [2]int             `json:"intro"`
	Outro     [2]int             `json:"outro"`
}

func newSourceResponse(p domain.SourcePayload) sourceResponse {
	out := sourceResponse{
		StreamURL: p.StreamURL,
		Headers:   p.Headers,
		Intro:     [2]int{p.Intro.Start, p.Intro.End},
		Outro:     [2]int{p.Outro.Start, p.Outro.End},
	}
	for _, s := range p.Subtitles {
		out.Subtitles = append(out.Subtitles, subtitleResponse{URL: s.URL, Lang: s.Lang})
	}
	return out
}

type warningResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type readyResponse struct {
	RunID         string            `json:"runId"`
	AnimeID       int               `json:"animeId"`
	EpisodeID     string            `json:"episodeId"`
	EpisodeNumber int               `json:"episodeNumber,omitempty"`
	EpisodeTitle  string            `json:"episodeTitle,omitempty"`
	Query         queryResponse     `json:"query"`
	Source        sourceResponse    `json:"source"`
	ResumeSeconds float64           `json:"resumeSeconds"`
	Warnings      []warningResponse `json:"warnings,omitempty"`
}

func newWarnings(warnings []*playback.Error) []warningResponse {
	var out []warningResponse
	for _, w := range warnings {
		out = append(out, warningResponse{Kind: w.Kind.String(), Message: w.Error()})
	}
	return out
}

func newReadyResponse(r *playback.Ready) readyResponse {
	out := readyResponse{
		RunID:         r.RunID,
		AnimeID:       r.AnimeID,
		EpisodeID:     r.Episode.EpisodeID,
		EpisodeNumber: r.Episode.Number,
		EpisodeTitle:  r.Episode.Title,
		Query:         newQueryResponse(r.Query),
		Source:        newSourceResponse(r.Source),
		ResumeSeconds: r.Resume.Seconds(),
		Warnings:      newWarnings(r.Warnings),
	}
	return out
}

type animeResponse struct {
	AnimeID              int    `json:"animeId"`
	ProviderID           string `json:"providerId"`
	Linked               bool   `json:"linked"`
	Episodes             int    `json:"episodes"`
	IsFavorite           bool   `json:"isFavorite"`
	LastEpisodeWatchedID string `json:"lastEpisodeWatchedId,omitempty"`
}

func newAnimeResponse(c domain.AnimeComplement) animeResponse {
	return animeResponse{
		AnimeID:              c.AnimeID,
		ProviderID:           c.ProviderID,
		Linked:               c.IsLinked(),
		Episodes:             len(c.Episodes),
		IsFavorite:           c.IsFavorite,
		LastEpisodeWatchedID: c.LastEpisodeWatchedID,
	}
}

type episodeRefResponse struct {
	EpisodeID string `json:"episodeId"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	IsFiller  bool   `json:"isFiller"`
}

type episodeListResponse struct {
	Anime    animeResponse        `json:"anime"`
	Episodes []episodeRefResponse `json:"episodes"`
	Warnings []warningResponse    `json:"warnings,omitempty"`
}

func newEpisodeListResponse(c domain.AnimeComplement, episodes []domain.EpisodeRef, warnings []*playback.Error) episodeListResponse {
	out := episodeListResponse{
		Anime:    newAnimeResponse(c),
		Episodes: make([]episodeRefResponse, 0, len(episodes)),
		Warnings: newWarnings(warnings),
	}
	for _, ep := range episodes {
		out.Episodes = append(out.Episodes, episodeRefResponse{
			EpisodeID: ep.EpisodeID,
			Number:    ep.Number,
			Title:     ep.Title,
			IsFiller:  ep.IsFiller,
		})
	}
	return out
}

type episodeResponse struct {
	EpisodeID           string        `json:"episodeId"`
	AnimeID             int           `json:"animeId"`
	ResolvedQuery       queryResponse `json:"resolvedQuery"`
	IsFavorite          bool          `json:"isFavorite"`
	LastWatchedAt       *time.Time    `json:"lastWatchedAt,omitempty"`
	LastPositionSeconds *float64      `json:"lastPositionSeconds,omitempty"`
	DurationSeconds     *float64      `json:"durationSeconds,omitempty"`
	HasScreenshot       bool          `json:"hasScreenshot"`
}

func newEpisodeResponse(c domain.EpisodeComplement) episodeResponse {
	return episodeResponse{
		EpisodeID:           c.EpisodeID,
		AnimeID:             c.AnimeID,
		ResolvedQuery:       newQueryResponse(c.ResolvedQuery),
		IsFavorite:          c.IsFavorite,
		LastWatchedAt:       c.LastWatchedAt,
		LastPositionSeconds: c.LastPositionSeconds,
		DurationSeconds:     c.DurationSeconds,
		HasScreenshot:       len(c.Screenshot) > 0,
	}
}
