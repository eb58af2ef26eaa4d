package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/anikino/internal/complement"
	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/logging"
	"github.com/mmcdole/anikino/internal/mirror"
	"github.com/mmcdole/anikino/internal/playback"
	"github.com/mmcdole/anikino/internal/resolver"
	"github.com/mmcdole/anikino/internal/store"
)

const episodeID = "frieren-18542?ep=107257"

type stubMetadata struct{}

func (stubMetadata) FetchAnimeRecord(_ context.Context, id int) (*domain.AnimeRecord, error) {
	if id != 52991 {
		return nil, errors.New("unknown anime")
	}
	return &domain.AnimeRecord{ID: 52991, Title: "Sousou no Frieren"}, nil
}

type stubStreaming struct{}

func (stubStreaming) FetchEpisodeList(context.Context, string) ([]domain.EpisodeRef, error) {
	return []domain.EpisodeRef{{EpisodeID: episodeID, Number: 1, Title: "The Journey's End"}}, nil
}

func (stubStreaming) FetchServers(_ context.Context, id string) ([]domain.Server, error) {
	if id != episodeID {
		return nil, nil
	}
	return []domain.Server{
		{Name: "hd-1", Category: domain.CategorySub},
		{Name: "hd-2", Category: domain.CategoryDub},
	}, nil
}

func (stubStreaming) FetchSource(_ context.Context, _, server string, _ domain.Category) (*domain.SourcePayload, error) {
	return &domain.SourcePayload{
		AnimeID:   52991,
		StreamURL: "https://cdn.example/" + server + ".m3u8",
		Headers:   map[string]string{"Referer": "https://megacloud.blog/"},
	}, nil
}

func (stubStreaming) SearchAnime(context.Context, string) ([]domain.ProviderAnime, error) {
	return []domain.ProviderAnime{{ProviderID: "frieren-18542", Title: "Frieren: Beyond Journey's End"}}, nil
}

func (stubStreaming) ProviderMalID(context.Context, string) (int, error) { return 52991, nil }

func newTestServer(t *testing.T) (*httptest.Server, *store.ComplementStore) {
	t.Helper()
	s, err := store.NewComplementStore("")
	require.NoError(t, err)

	logger := logging.NullLogger()
	svc := complement.NewService(stubMetadata{}, stubStreaming{}, s, logger)
	res := resolver.New(stubStreaming{}, mirror.NewTracker(), time.Minute, logger)
	coord := playback.NewCoordinator(svc, res, playback.Options{AutoLink: true}, logger)

	srv := httptest.NewServer(NewHandler(coord, svc, logger).Routes())
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, target, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.StatusCode != http.StatusNoContent && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func episodePath(srv *httptest.Server, suffix string) string {
	return srv.URL + "/episodes/" + url.PathEscape(episodeID) + suffix
}

func TestPlay(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	assert.Equal(t, episodeID, body["episodeId"])
	query := body["query"].(map[string]interface{})
	assert.Equal(t, "hd-1", query["server"])
	assert.Equal(t, "sub", query["category"])
	source := body["source"].(map[string]interface{})
	assert.Equal(t, "https://cdn.example/hd-1.m3u8", source["streamUrl"])
	assert.NotEmpty(t, body["runId"])
}

func TestPlay_CategoryOnly(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{"category":"dub"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	query := body["query"].(map[string]interface{})
	assert.Equal(t, "hd-2", query["server"])
	assert.Equal(t, "dub", query["category"])

	resp, body = do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{"category":"raw"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["kind"])
}

func TestPlay_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/anime/abc/play", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["kind"])

	resp, body = do(t, http.MethodPost, srv.URL+"/anime/1/play", `{}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "metadata_fetch_failed", body["kind"])

	resp, body = do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{"episodeId":"other?ep=1"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no_servers_available", body["kind"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{"server":"hd-1","category":"raw"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEpisodeLifecycle(t *testing.T) {
	srv, s := newTestServer(t)

	resp, _ := do(t, http.MethodGet, episodePath(srv, ""), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPut, episodePath(srv, "/favorite"), `{"favorite":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isFavorite"])

	resp, body = do(t, http.MethodPut, episodePath(srv, "/progress"), `{"position":120.5,"duration":1440}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 120.5, body["lastPositionSeconds"])
	assert.Equal(t, true, body["isFavorite"], "progress keeps favorite")

	resp, body = do(t, http.MethodGet, episodePath(srv, ""), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, episodeID, body["episodeId"])

	anime, _ := s.GetAnimeComplement(52991)
	assert.Equal(t, episodeID, anime.LastEpisodeWatchedID)

	resp, _ = do(t, http.MethodDelete, episodePath(srv, ""), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, episodePath(srv, ""), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListEpisodes(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/anime/52991/episodes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	anime := body["anime"].(map[string]interface{})
	assert.Equal(t, "frieren-18542", anime["providerId"])
	episodes := body["episodes"].([]interface{})
	require.Len(t, episodes, 1)
	assert.Equal(t, episodeID, episodes[0].(map[string]interface{})["episodeId"])

	resp, body = do(t, http.MethodGet, srv.URL+"/anime/52991/episodes?q=journey", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["episodes"], 1)

	resp, body = do(t, http.MethodGet, srv.URL+"/anime/52991/episodes?q=zzzz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["episodes"])

	resp, body = do(t, http.MethodGet, srv.URL+"/anime/1/episodes", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "metadata_fetch_failed", body["kind"])
}

func TestSetAnimeFavorite(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPut, srv.URL+"/anime/52991/favorite", `{"favorite":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["kind"])

	do(t, http.MethodPost, srv.URL+"/anime/52991/play", `{}`)

	resp, body = do(t, http.MethodPut, srv.URL+"/anime/52991/favorite", `{"favorite":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isFavorite"])
	assert.Equal(t, true, body["linked"])
}

func TestProgress_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPut, episodePath(srv, "/progress"), `{"position":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, episodePath(srv, "/progress"), `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
