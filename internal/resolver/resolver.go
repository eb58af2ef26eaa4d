// Package resolver turns "play episode E" into a confirmed playable source
// by walking candidate mirrors in priority order while honoring cooldowns.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/metrics"
	"github.com/mmcdole/anikino/internal/mirror"
)

// DefaultCooldown is how long a failed mirror is skipped
const DefaultCooldown = 5 * time.Minute

// sourceFetcher is the slice of the streaming client the resolver needs
type sourceFetcher interface {
	FetchSource(ctx context.Context, episodeID, server string, category domain.Category) (*domain.SourcePayload, error)
}

// Request describes one resolution
type Request struct {
	AnimeID     int                        // Expected anime id embedded in payloads
	EpisodeID   string                     // Provider episode id
	Servers     []domain.Server            // Advertised mirrors in provider order
	Preferred   *domain.EpisodeSourceQuery // Optional first choice
	MaxAttempts int                        // Network attempts cap; 0 means no cap
}

// Resolution is a confirmed playable source
type Resolution struct {
	Query    domain.EpisodeSourceQuery
	Source   domain.SourcePayload
	Attempts int
}

// NoPlayableSourceError reports an exhausted candidate list. It matches
// domain.ErrNoPlayableSource and unwraps to the last mirror error.
type NoPlayableSourceError struct {
	EpisodeID string
	Attempts  int // Network calls made
	Skipped   int // Candidates skipped while cooling down
	LastErr   error
}

func (e *NoPlayableSourceError) Error() string {
	msg := fmt.Sprintf("no playable source for episode %s (%d attempts, %d cooling down)", e.EpisodeID, e.Attempts, e.Skipped)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *NoPlayableSourceError) Is(target error) bool {
	return target == domain.ErrNoPlayableSource
}

func (e *NoPlayableSourceError) Unwrap() error { return e.LastErr }

// Resolver attempts mirrors for an episode
type Resolver struct {
	client          sourceFetcher
	tracker         *mirror.Tracker
	cooldown        time.Duration
	defaultCategory domain.Category
	now             func() time.Time
	logger          *slog.Logger
}

// New creates a resolver. A zero cooldown uses DefaultCooldown.
func New(client sourceFetcher, tracker *mirror.Tracker, cooldown time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = mirror.NewTracker()
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Resolver{
		client:          client,
		tracker:         tracker,
		cooldown:        cooldown,
		defaultCategory: domain.CategorySub,
		now:             time.Now,
		logger:          logger,
	}
}

// SetDefaultCategory sets the category used when no preferred query is given
func (r *Resolver) SetDefaultCategory(c domain.Category) {
	r.defaultCategory = c
}

// SetClock replaces the time source
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Tracker returns the failure tracker shared by this resolver
func (r *Resolver) Tracker() *mirror.Tracker {
	return r.tracker
}

// Candidates returns the ordered attempt list for an episode, before
// cooldown filtering. See candidates.go for the ordering policy.
func (r *Resolver) Candidates(req Request) []domain.EpisodeSourceQuery {
	return Candidates(req.EpisodeID, req.Servers, req.Preferred, r.defaultCategory)
}

// Resolve tries candidates until one yields a playable payload for the
// expected anime. Failed mirrors are recorded in the tracker.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	now := r.now()

	var usable []domain.EpisodeSourceQuery
	skipped := 0
	for _, q := range r.Candidates(req) {
		if r.tracker.InCooldown(q.Server, q.Category, now, r.cooldown) {
			skipped++
			metrics.CandidatesSkipped.Inc()
			continue
		}
		usable = append(usable, q)
	}

	if len(usable) == 0 {
		r.logger.Warn("no usable mirror candidates",
			"episodeID", req.EpisodeID, "advertised", len(req.Servers), "coolingDown", skipped)
		return nil, &NoPlayableSourceError{EpisodeID: req.EpisodeID, Skipped: skipped}
	}

	attempts := 0
	var lastErr error
	for _, q := range usable {
		if req.MaxAttempts > 0 && attempts >= req.MaxAttempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempts++
		payload, err := r.attempt(ctx, req.AnimeID, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			r.tracker.RecordFailure(q.Server, q.Category, r.now())
			r.logger.Warn("mirror failed", "query", q.String(), "attempt", attempts, "error", err)
			continue
		}

		r.logger.Info("resolved source", "query", q.String(), "attempts", attempts)
		return &Resolution{Query: q, Source: *payload, Attempts: attempts}, nil
	}

	return nil, &NoPlayableSourceError{
		EpisodeID: req.EpisodeID,
		Attempts:  attempts,
		Skipped:   skipped,
		LastErr:   lastErr,
	}
}

// attempt performs one fetch and validates the payload
func (r *Resolver) attempt(ctx context.Context, animeID int, q domain.EpisodeSourceQuery) (*domain.SourcePayload, error) {
	category := string(q.Category)

	payload, err := r.client.FetchSource(ctx, q.EpisodeID, q.Server, q.Category)
	if err != nil {
		metrics.SourceAttempts.WithLabelValues(category, "failure").Inc()
		return nil, fmt.Errorf("%s: %w", q, err)
	}
	if payload == nil || !payload.Playable() {
		metrics.SourceAttempts.WithLabelValues(category, "empty").Inc()
		return nil, fmt.Errorf("%s: %w", q, domain.ErrEmptySource)
	}
	if payload.AnimeID != 0 && payload.AnimeID != animeID {
		metrics.SourceAttempts.WithLabelValues(category, "mismatch").Inc()
		return nil, fmt.Errorf("%s: %w: expected %d, got %d", q, domain.ErrMirrorMismatch, animeID, payload.AnimeID)
	}

	metrics.SourceAttempts.WithLabelValues(category, "success").Inc()
	return payload, nil
}

// IsExhausted reports whether err means no mirror could serve the episode
func IsExhausted(err error) bool {
	return errors.Is(err, domain.ErrNoPlayableSource)
}
