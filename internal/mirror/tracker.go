// Package mirror tracks recent per-mirror failures so resolution can skip
// mirrors that just failed.
package mirror

import (
	"sync"
	"time"

	"github.com/mmcdole/anikino/internal/domain"
)

type key struct {
	server   string
	category domain.Category
}

func newKey(server string, category domain.Category) key {
	return key{server: domain.NormalizeServer(server), category: category}
}

// Tracker maps (server, category) to the instant of its last failure.
// State lives for the process lifetime only. Safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	failures map[key]time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{failures: make(map[key]time.Time)}
}

// RecordFailure inserts or overwrites the failure instant for a mirror
func (t *Tracker) RecordFailure(server string, category domain.Category, now time.Time) {
	t.mu.Lock()
	t.failures[newKey(server, category)] = now
	t.mu.Unlock()
}

// InCooldown reports whether the mirror failed less than window before now
func (t *Tracker) InCooldown(server string, category domain.Category, now time.Time, window time.Duration) bool {
	t.mu.RLock()
	failedAt, ok := t.failures[newKey(server, category)]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return now.Sub(failedAt) < window
}

// LastFailure returns the recorded failure instant, if any
func (t *Tracker) LastFailure(server string, category domain.Category) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	failedAt, ok := t.failures[newKey(server, category)]
	return failedAt, ok
}

// Len returns the number of recorded mirrors, expired or not
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.failures)
}

// Clear forgets every failure
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.failures = make(map[key]time.Time)
	t.mu.Unlock()
}
