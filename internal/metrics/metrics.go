// Package metrics exposes Prometheus counters for the sync and resolution
// engine. Metrics are served by the api package at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceAttempts counts mirror fetch attempts.
	// Labels: category, result (success, failure, mismatch, empty)
	SourceAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anikino_source_attempts_total",
			Help: "Mirror source fetch attempts by outcome",
		},
		[]string{"category", "result"},
	)

	// CandidatesSkipped counts candidates skipped because of cooldown
	CandidatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anikino_source_candidates_skipped_total",
			Help: "Mirror candidates skipped while cooling down",
		},
	)

	// EpisodeRefreshes counts episode list refreshes.
	// Labels: result (skipped, unchanged, updated, failed)
	EpisodeRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anikino_episode_refreshes_total",
			Help: "Episode list refresh decisions and outcomes",
		},
		[]string{"result"},
	)

	// PlaybackRuns counts coordinator runs by terminal state or error kind
	PlaybackRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anikino_playback_runs_total",
			Help: "Playback resolution runs by outcome",
		},
		[]string{"outcome"},
	)

	// MetadataBreakerState mirrors the metadata client breaker: 0=closed, 1=half-open, 2=open
	MetadataBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anikino_metadata_breaker_state",
			Help: "Metadata provider circuit breaker state",
		},
	)
)
