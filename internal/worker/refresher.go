// Package worker runs background jobs on a cron schedule
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmcdole/anikino/internal/complement"
	"github.com/mmcdole/anikino/internal/domain"
)

// MaxRecordAge bounds how long a cached anime record, and with it the
// broadcast slot used for staleness, is trusted before it is refetched.
const MaxRecordAge = 24 * time.Hour

// RefreshSummary reports one pass over the favorites
type RefreshSummary struct {
	Checked int
	Updated int
	Failed  int
}

// Refresher keeps favorited anime episode lists current
type Refresher struct {
	complements *complement.Service
	schedule    string
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger

	cron    *cron.Cron
	running sync.Mutex // One pass at a time
}

// NewRefresher creates a refresher. An empty schedule disables it.
func NewRefresher(complements *complement.Service, schedule string, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		complements: complements,
		schedule:    schedule,
		timeout:     5 * time.Minute,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces the time source
func (r *Refresher) SetClock(now func() time.Time) {
	r.now = now
}

// Enabled reports whether Start schedules anything
func (r *Refresher) Enabled() bool {
	return r.schedule != ""
}

// Start runs one pass immediately and then on schedule until ctx is done.
// A disabled refresher returns nil without running.
func (r *Refresher) Start(ctx context.Context) error {
	if !r.Enabled() {
		r.logger.Info("favorite refresh disabled")
		return nil
	}
	r.cron = cron.New()
	_, err := r.cron.AddFunc(r.schedule, func() {
		r.logger.Info("running favorite refresh")
		r.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}

	go func() {
		r.logger.Info("running initial favorite refresh")
		r.RunOnce(ctx)
		r.cron.Start()

		<-ctx.Done()
		<-r.cron.Stop().Done()
		r.logger.Info("refresher stopped")
	}()
	return nil
}

// RunOnce refreshes every favorited, linked anime whose episode list is
// stale. Overlapping passes are skipped.
func (r *Refresher) RunOnce(ctx context.Context) RefreshSummary {
	var summary RefreshSummary
	if !r.running.TryLock() {
		r.logger.Debug("refresh already running, skipping")
		return summary
	}
	defer r.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	favorites, err := r.complements.FavoriteAnime()
	if err != nil {
		r.logger.Error("failed to list favorites", "error", err)
		return summary
	}

	for _, fav := range favorites {
		if ctx.Err() != nil {
			break
		}
		if !fav.IsLinked() {
			continue
		}
		summary.Checked++

		record, err := r.record(ctx, fav.AnimeID)
		if err != nil {
			summary.Failed++
			r.logger.Warn("skipping favorite without metadata", "animeID", fav.AnimeID, "error", err)
			continue
		}

		res := r.complements.RefreshEpisodesIfStale(ctx, *record, fav, false)
		switch {
		case res.Warning != nil:
			summary.Failed++
		case res.Changed:
			summary.Updated++
		}
	}

	r.logger.Info("favorite refresh finished",
		"checked", summary.Checked, "updated", summary.Updated, "failed", summary.Failed)
	return summary
}

// record returns the cached anime record, refetching it once it is older
// than MaxRecordAge so broadcast slot changes reach the staleness check.
func (r *Refresher) record(ctx context.Context, animeID int) (*domain.AnimeRecord, error) {
	cached, ok := r.complements.GetAnimeRecord(animeID)
	force := !ok || r.now().Sub(cached.FetchedAt) > MaxRecordAge
	return r.complements.AnimeRecord(ctx, animeID, force)
}
