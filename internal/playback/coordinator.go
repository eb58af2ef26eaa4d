// Package playback drives one "play anime A (episode E)" request from
// cached metadata to a confirmed playable source.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/anikino/internal/complement"
	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/metrics"
	"github.com/mmcdole/anikino/internal/resolver"
)

// DefaultSessionAttempts caps attempts when a known mirror is retried
const DefaultSessionAttempts = 2

// Options tunes a coordinator
type Options struct {
	SessionAttempts int  // Warm start cap; 0 uses DefaultSessionAttempts
	MaxAttempts     int  // Cold start cap; 0 = unbounded
	AutoLink        bool // Link unlinked anime to the provider before refreshing
}

// Request is one playback resolution
type Request struct {
	AnimeID      int
	EpisodeID    string                     // Empty picks last watched, else first
	Preferred    *domain.EpisodeSourceQuery // Optional mirror to try first
	ForceRefresh bool                       // Refetch metadata and episode list
}

// Ready is a successful run
type Ready struct {
	RunID      string
	AnimeID    int
	Episode    domain.EpisodeRef
	Query      domain.EpisodeSourceQuery
	Source     domain.SourcePayload
	Resume     time.Duration // Saved position, 0 when none
	Complement domain.EpisodeComplement
	Warnings   []*Error // Soft failures that did not stop the run
}

// Coordinator sequences complement sync and mirror resolution
type Coordinator struct {
	complements *complement.Service
	resolver    *resolver.Resolver
	opts        Options
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	observers []StateFunc
}

// NewCoordinator creates a coordinator
func NewCoordinator(complements *complement.Service, res *resolver.Resolver, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SessionAttempts <= 0 {
		opts.SessionAttempts = DefaultSessionAttempts
	}
	return &Coordinator{
		complements: complements,
		resolver:    res,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the time source
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Observe registers fn for every state transition of every run
func (c *Coordinator) Observe(fn StateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// run is the per-request state
type run struct {
	id       string
	state    State
	logger   *slog.Logger
	warnings []*Error
	notify   []StateFunc
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	r.logger.Debug("state", "from", prev.String(), "to", next.String())
	for _, fn := range r.notify {
		fn(r.id, prev, next)
	}
}

func (r *run) fail(kind ErrorKind, msg string, err error) *Error {
	e := &Error{Kind: kind, Message: msg, Err: err}
	r.to(StateFailed)
	r.logger.Error("playback failed", "kind", kind.String(), "error", e)
	return e
}

func (r *run) warn(kind ErrorKind, msg string, err error) {
	r.warnings = append(r.warnings, &Error{Kind: kind, Message: msg, Err: err})
	r.logger.Warn(msg, "kind", kind.String(), "error", err)
}

// Resolve runs Init → MetadataLoading → MetadataReady → EpisodesLoading →
// EpisodesReady → SourceResolving → Ready. Any loading or resolving phase
// may end in Failed; the returned error is then a *Error.
func (c *Coordinator) Resolve(ctx context.Context, req Request) (*Ready, error) {
	c.mu.RLock()
	observers := append([]StateFunc(nil), c.observers...)
	c.mu.RUnlock()

	r := &run{
		id:     uuid.NewString(),
		state:  StateInit,
		notify: observers,
	}
	r.logger = c.logger.With("run", r.id, "animeID", req.AnimeID)

	ready, err := c.resolve(ctx, r, req)
	if err != nil {
		metrics.PlaybackRuns.WithLabelValues(err.Kind.String()).Inc()
		return nil, err
	}
	metrics.PlaybackRuns.WithLabelValues("ready").Inc()
	return ready, nil
}

func (c *Coordinator) resolve(ctx context.Context, r *run, req Request) (*Ready, *Error) {
	current, ferr := c.syncEpisodes(ctx, r, req.AnimeID, req.ForceRefresh)
	if ferr != nil {
		return nil, ferr
	}

	episode, ok := pickEpisode(current, req.EpisodeID)
	if !ok {
		return nil, r.fail(KindNoEpisodesAvailable, "no episodes available", domain.ErrNoEpisodesAvailable)
	}
	r.logger = r.logger.With("episodeID", episode.EpisodeID)
	r.to(StateEpisodesReady)

	// 3. Source
	r.to(StateSourceResolving)
	return c.resolveSource(ctx, r, current, episode, req.Preferred)
}

// Episodes loads metadata and refreshes the episode list if stale, without
// resolving a source. Observers are not notified. Soft failures come back
// as warnings.
func (c *Coordinator) Episodes(ctx context.Context, animeID int, force bool) (*domain.AnimeComplement, []*Error, error) {
	r := &run{
		id:     uuid.NewString(),
		state:  StateInit,
		logger: c.logger.With("animeID", animeID),
	}
	current, err := c.syncEpisodes(ctx, r, animeID, force)
	if err != nil {
		return nil, r.warnings, err
	}
	return &current, r.warnings, nil
}

// syncEpisodes runs the metadata and episode list phases, leaving the run
// in EpisodesLoading.
func (c *Coordinator) syncEpisodes(ctx context.Context, r *run, animeID int, force bool) (domain.AnimeComplement, *Error) {
	// 1. Metadata
	r.to(StateMetadataLoading)
	anime, err := c.complements.GetOrCreateAnimeComplement(ctx, animeID)
	if err != nil {
		return domain.AnimeComplement{}, r.fail(KindMetadataFetchFailed, "could not load anime metadata", err)
	}
	record, err := c.complements.AnimeRecord(ctx, animeID, force)
	if err != nil {
		return domain.AnimeComplement{}, r.fail(KindMetadataFetchFailed, "could not load anime metadata", err)
	}
	if !anime.IsLinked() && c.opts.AutoLink {
		if linked, err := c.complements.LinkProvider(ctx, *record); err != nil {
			r.warn(KindProviderNotLinked, "could not link anime to the streaming provider", err)
		} else {
			anime = linked
		}
	}
	r.to(StateMetadataReady)

	// 2. Episodes
	r.to(StateEpisodesLoading)
	refresh := c.complements.RefreshEpisodesIfStale(ctx, *record, *anime, force)
	if refresh.Warning != nil {
		r.warn(KindEpisodeListFetchFailed, "episode list could not be refreshed", refresh.Warning)
	}
	return refresh.Complement, nil
}

// mergeExhausted folds a warm pass failure into the cold retry's error so
// the attempt count and the last mirror error survive the retry.
func mergeExhausted(warm, cold error) error {
	if cold == nil {
		return nil
	}
	var w, c *resolver.NoPlayableSourceError
	if !errors.As(warm, &w) || !errors.As(cold, &c) {
		return cold
	}
	merged := *c
	merged.Attempts += w.Attempts
	if merged.LastErr == nil {
		merged.LastErr = w.LastErr
	}
	return &merged
}

// pickEpisode selects the explicit episode, else the last watched one if
// it is still listed, else the first listed.
func pickEpisode(c domain.AnimeComplement, episodeID string) (domain.EpisodeRef, bool) {
	if episodeID != "" {
		if ep, ok := c.Episode(episodeID); ok {
			return ep, true
		}
		return domain.EpisodeRef{EpisodeID: episodeID}, true
	}
	if c.LastEpisodeWatchedID != "" {
		if ep, ok := c.Episode(c.LastEpisodeWatchedID); ok {
			return ep, true
		}
	}
	if len(c.Episodes) == 0 {
		return domain.EpisodeRef{}, false
	}
	return c.Episodes[0], true
}

func (c *Coordinator) resolveSource(ctx context.Context, r *run, anime domain.AnimeComplement, episode domain.EpisodeRef, preferred *domain.EpisodeSourceQuery) (*Ready, *Error) {
	cached, hasCache := c.complements.GetEpisodeComplement(episode.EpisodeID)

	var servers []domain.Server
	serversCached := false
	if hasCache && len(cached.Servers) > 0 {
		servers = cached.Servers
		serversCached = true
	}
	// A preference without a server only orders categories
	var hint *domain.EpisodeSourceQuery
	if preferred != nil && preferred.Server == "" {
		hint = &domain.EpisodeSourceQuery{Category: preferred.Category}
		preferred = nil
	}
	if preferred == nil && hasCache && cached.ResolvedQuery.Server != "" &&
		(hint == nil || hint.Category == "" || hint.Category == cached.ResolvedQuery.Category) {
		q := cached.ResolvedQuery
		q.EpisodeID = episode.EpisodeID
		preferred = &q
	}
	warm := preferred != nil

	if len(servers) == 0 {
		fetched, err := c.complements.FetchServers(ctx, episode.EpisodeID)
		switch {
		case err != nil && !warm:
			return nil, r.fail(KindNoServersAvailable, "could not fetch mirrors for this episode", err)
		case len(fetched) == 0 && !warm:
			return nil, r.fail(KindNoServersAvailable, "no mirrors configured for this episode", domain.ErrNoServersAvailable)
		case err != nil:
			r.logger.Warn("mirror list unavailable, trying preferred mirror only", "error", err)
		}
		servers = fetched
	}

	req := resolver.Request{
		AnimeID:     anime.AnimeID,
		EpisodeID:   episode.EpisodeID,
		Servers:     servers,
		Preferred:   hint,
		MaxAttempts: c.opts.MaxAttempts,
	}
	if warm {
		req.Preferred = preferred
		req.MaxAttempts = c.opts.SessionAttempts
	}

	res, err := c.resolver.Resolve(ctx, req)
	if err != nil && warm && serversCached && resolver.IsExhausted(err) {
		// Cached mirrors went bad: refetch the list and go cold
		r.logger.Info("warm start exhausted, refetching mirrors")
		if fresh, ferr := c.complements.FetchServers(ctx, episode.EpisodeID); ferr == nil && len(fresh) > 0 {
			servers = fresh
			req.Servers = fresh
			req.Preferred = &domain.EpisodeSourceQuery{Category: preferred.Category}
			req.MaxAttempts = c.opts.MaxAttempts
			var coldErr error
			res, coldErr = c.resolver.Resolve(ctx, req)
			err = mergeExhausted(err, coldErr)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, r.fail(KindNoPlayableSourceFound, "resolution cancelled", err)
		}
		return nil, r.fail(KindNoPlayableSourceFound, "no playable source found", err)
	}

	// 4. Persist, keeping favorite and progress
	ec := domain.EpisodeComplement{EpisodeID: episode.EpisodeID, AnimeID: anime.AnimeID}
	if hasCache {
		ec = *cached
		ec.AnimeID = anime.AnimeID
	}
	ec = ec.WithResolvedQuery(res.Query, servers, res.Source, c.now())
	if err := c.complements.UpsertEpisodeComplement(ec); err != nil {
		r.logger.Error("failed to persist resolved source", "error", err)
	}
	c.complements.MarkWatched(anime.AnimeID, episode.EpisodeID)

	r.to(StateReady)
	r.logger.Info("playback ready", "query", res.Query.String(), "attempts", res.Attempts, "warnings", len(r.warnings))

	return &Ready{
		RunID:      r.id,
		AnimeID:    anime.AnimeID,
		Episode:    episode,
		Query:      res.Query,
		Source:     res.Source,
		Resume:     ec.ResumeOffset(),
		Complement: ec,
		Warnings:   r.warnings,
	}, nil
}
