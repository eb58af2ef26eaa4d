// Package jikan fetches anime metadata from the Jikan (MyAnimeList) API
package jikan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/metrics"
)

// Options tunes the client. Zero values use defaults.
type Options struct {
	Timeout     time.Duration
	RatePerSec  float64 // Jikan allows 3 req/s
	Proxy       string
	BreakerTrip uint32 // Consecutive failures before the breaker opens
}

// Client implements domain.MetadataClient
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*domain.AnimeRecord]
	logger  *slog.Logger
}

// NewClient creates a Jikan client for baseURL (e.g. https://api.jikan.moe)
func NewClient(baseURL string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 3
	}
	if opts.BreakerTrip == 0 {
		opts.BreakerTrip = 5
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		})
	if opts.Proxy != "" {
		httpClient.SetProxy(opts.Proxy)
	}

	settings := gobreaker.Settings{
		Name:        "jikan",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerTrip
		},
		// A missing anime is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrAnimeNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.MetadataBreakerState.Set(float64(to))
			logger.Warn("metadata breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		breaker: gobreaker.NewCircuitBreaker[*domain.AnimeRecord](settings),
		logger:  logger,
	}
}

// FetchAnimeRecord loads /v4/anime/{id}
func (c *Client) FetchAnimeRecord(ctx context.Context, animeID int) (*domain.AnimeRecord, error) {
	return c.breaker.Execute(func() (*domain.AnimeRecord, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var body animeResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("id", fmt.Sprint(animeID)).
			SetResult(&body).
			Get("/v4/anime/{id}")
		if err != nil {
			return nil, fmt.Errorf("jikan request failed: %w", err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", domain.ErrAnimeNotFound, animeID)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("jikan returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
		}

		record := body.Data.toDomain()
		record.FetchedAt = time.Now()
		c.logger.Debug("fetched anime record", "animeID", animeID, "title", record.Title)
		return record, nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
