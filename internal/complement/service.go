// Package complement keeps the on-device enrichment of anime and episodes
// consistent with the metadata and streaming providers.
//
// Commands hit the network when the cache is missing or stale; queries and
// user-state updates only touch the store.
package complement

import (
	"log/slog"
	"time"

	"github.com/mmcdole/anikino/internal/domain"
)

// Service orchestrates provider clients and the store
type Service struct {
	metadata  domain.MetadataClient
	streaming domain.StreamingClient
	store     domain.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new complement service
func NewService(metadata domain.MetadataClient, streaming domain.StreamingClient, store domain.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		metadata:  metadata,
		streaming: streaming,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RefreshResult is the outcome of an episode list refresh.
// Warning is set when the remote fetch failed; Complement is then the input.
type RefreshResult struct {
	Complement domain.AnimeComplement
	Refreshed  bool // A remote fetch succeeded
	Changed    bool // The stored episode list was replaced
	Warning    error
}
