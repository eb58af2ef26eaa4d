// Package hianime talks to a self-hosted aniwatch-api (HiAnime scraper)
// instance for episode lists, mirrors and stream sources.
package hianime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/mmcdole/anikino/internal/domain"
)

const apiPrefix = "/api/v2/hianime"

// Client implements domain.StreamingClient
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a client for baseURL (e.g. http://localhost:4000)
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/") + apiPrefix).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal),
		logger: logger,
	}
}

func (c *Client) SetProxy(proxyURL string) {
	if proxyURL != "" {
		c.http.SetProxy(proxyURL)
	}
}

// get issues a GET and unwraps the {success, data} envelope into out
func get[T any](ctx context.Context, c *Client, path string, query map[string]string, out *T) error {
	var env envelope[T]
	req := c.http.R().SetContext(ctx).SetResult(&env).SetError(&env)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("hianime %s: %w", path, err)
	}
	if resp.IsError() {
		msg := env.Message
		if msg == "" {
			msg = resp.Status()
		}
		return fmt.Errorf("hianime %s: %d %s", path, resp.StatusCode(), msg)
	}
	*out = env.Data
	return nil
}

func (c *Client) FetchEpisodeList(ctx context.Context, providerID string) ([]domain.EpisodeRef, error) {
	var data episodesData
	if err := get(ctx, c, "/anime/"+providerID+"/episodes", nil, &data); err != nil {
		return nil, err
	}

	refs := make([]domain.EpisodeRef, 0, len(data.Episodes))
	for _, ep := range data.Episodes {
		refs = append(refs, domain.EpisodeRef{
			EpisodeID: ep.EpisodeID,
			Number:    ep.Number,
			Title:     ep.Title,
			IsFiller:  ep.IsFiller,
		})
	}
	c.logger.Debug("fetched episode list", "providerID", providerID, "count", len(refs))
	return refs, nil
}

// FetchServers returns sub and dub mirrors in provider order. Raw mirrors
// are dropped.
func (c *Client) FetchServers(ctx context.Context, episodeID string) ([]domain.Server, error) {
	var data serversData
	if err := get(ctx, c, "/episode/servers", map[string]string{"animeEpisodeId": episodeID}, &data); err != nil {
		return nil, err
	}

	servers := make([]domain.Server, 0, len(data.Sub)+len(data.Dub))
	for _, s := range data.Sub {
		servers = append(servers, domain.Server{Name: s.ServerName, Category: domain.CategorySub})
	}
	for _, s := range data.Dub {
		servers = append(servers, domain.Server{Name: s.ServerName, Category: domain.CategoryDub})
	}
	return servers, nil
}

func (c *Client) FetchSource(ctx context.Context, episodeID, server string, category domain.Category) (*domain.SourcePayload, error) {
	var data sourcesData
	query := map[string]string{
		"animeEpisodeId": episodeID,
		"server":         domain.NormalizeServer(server),
		"category":       string(category),
	}
	if err := get(ctx, c, "/episode/sources", query, &data); err != nil {
		return nil, err
	}
	return data.toDomain(), nil
}

func (c *Client) SearchAnime(ctx context.Context, query string) ([]domain.ProviderAnime, error) {
	var data searchData
	if err := get(ctx, c, "/search", map[string]string{"q": query, "page": "1"}, &data); err != nil {
		return nil, err
	}

	hits := make([]domain.ProviderAnime, 0, len(data.Animes))
	for _, a := range data.Animes {
		hits = append(hits, domain.ProviderAnime{ProviderID: a.ID, Title: a.Name})
	}
	return hits, nil
}

// ProviderMalID returns the MyAnimeList id the provider reports for an
// anime page, 0 when it reports none.
func (c *Client) ProviderMalID(ctx context.Context, providerID string) (int, error) {
	var data infoData
	if err := get(ctx, c, "/anime/"+providerID, nil, &data); err != nil {
		return 0, err
	}
	return data.Anime.Info.MalID, nil
}
