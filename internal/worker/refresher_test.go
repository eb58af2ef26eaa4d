package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/anikino/internal/complement"
	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/logging"
	"github.com/mmcdole/anikino/internal/store"
)

type noMetadata struct{}

func (noMetadata) FetchAnimeRecord(context.Context, int) (*domain.AnimeRecord, error) {
	return nil, errors.New("offline")
}

type scheduleSource struct {
	record domain.AnimeRecord
	calls  int
}

func (m *scheduleSource) FetchAnimeRecord(context.Context, int) (*domain.AnimeRecord, error) {
	m.calls++
	rec := m.record
	return &rec, nil
}

type episodeSource struct {
	lists map[string][]domain.EpisodeRef
	calls []string
}

func (e *episodeSource) FetchEpisodeList(_ context.Context, providerID string) ([]domain.EpisodeRef, error) {
	e.calls = append(e.calls, providerID)
	list, ok := e.lists[providerID]
	if !ok {
		return nil, errors.New("404")
	}
	return list, nil
}

func (e *episodeSource) FetchServers(context.Context, string) ([]domain.Server, error) { return nil, nil }

func (e *episodeSource) FetchSource(context.Context, string, string, domain.Category) (*domain.SourcePayload, error) {
	return nil, nil
}

func (e *episodeSource) SearchAnime(context.Context, string) ([]domain.ProviderAnime, error) {
	return nil, nil
}

func (e *episodeSource) ProviderMalID(context.Context, string) (int, error) { return 0, nil }

func TestRunOnce(t *testing.T) {
	s, err := store.NewComplementStore("")
	require.NoError(t, err)

	now := time.Date(2024, 1, 6, 12, 10, 0, 0, time.UTC)
	weekly := domain.Broadcast{Weekday: "Saturdays", LocalTime: "12:00", Timezone: "UTC"}
	before := now.Add(-70 * time.Minute)

	seed := func(id int, providerID string, favorite bool) {
		require.NoError(t, s.SaveAnimeRecord(domain.AnimeRecord{ID: id, Broadcast: weekly}))
		require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{
			AnimeID:              id,
			ProviderID:           providerID,
			IsFavorite:           favorite,
			Episodes:             []domain.EpisodeRef{{EpisodeID: providerID + "?ep=1"}},
			LastEpisodesSyncedAt: before,
		}))
	}
	seed(1, "airing-1", true)
	seed(2, "broken-2", true)
	seed(3, "3", true) // unlinked
	seed(4, "not-favorite-4", false)

	src := &episodeSource{lists: map[string][]domain.EpisodeRef{
		"airing-1": {{EpisodeID: "airing-1?ep=1"}, {EpisodeID: "airing-1?ep=2"}},
	}}
	svc := complement.NewService(noMetadata{}, src, s, logging.NullLogger())
	svc.SetClock(func() time.Time { return now })

	r := NewRefresher(svc, "", logging.NullLogger())
	summary := r.RunOnce(context.Background())

	assert.Equal(t, RefreshSummary{Checked: 2, Updated: 1, Failed: 1}, summary)
	assert.ElementsMatch(t, []string{"airing-1", "broken-2"}, src.calls)

	updated, _ := s.GetAnimeComplement(1)
	assert.Len(t, updated.Episodes, 2)
	assert.True(t, now.Equal(updated.LastEpisodesSyncedAt))
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s, err := store.NewComplementStore("")
	require.NoError(t, err)
	svc := complement.NewService(noMetadata{}, &episodeSource{}, s, logging.NullLogger())

	r := NewRefresher(svc, "every tuesday-ish", logging.NullLogger())
	assert.Error(t, r.Start(context.Background()))
}

func TestStart_EmptyScheduleDisabled(t *testing.T) {
	s, err := store.NewComplementStore("")
	require.NoError(t, err)
	svc := complement.NewService(noMetadata{}, &episodeSource{}, s, logging.NullLogger())

	r := NewRefresher(svc, "", logging.NullLogger())
	assert.False(t, r.Enabled())
	require.NoError(t, r.Start(context.Background()))
	assert.Nil(t, r.cron, "nothing scheduled")
}

func TestRunOnce_RefetchesOldRecords(t *testing.T) {
	now := time.Date(2024, 1, 6, 12, 10, 0, 0, time.UTC) // Saturday
	synced := now.Add(-70 * time.Minute)

	// The cached slot has not aired yet today; the provider moved it to 12:00
	cachedSlot := domain.Broadcast{Weekday: "Saturdays", LocalTime: "15:00", Timezone: "UTC"}
	movedSlot := domain.Broadcast{Weekday: "Saturdays", LocalTime: "12:00", Timezone: "UTC"}

	tests := []struct {
		name         string
		fetchedAt    time.Time
		wantMetadata int
		wantUpdated  int
	}{
		{"old record refetched", now.Add(-MaxRecordAge - time.Hour), 1, 1},
		{"recent record trusted", now.Add(-time.Hour), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := store.NewComplementStore("")
			require.NoError(t, err)
			require.NoError(t, s.SaveAnimeRecord(domain.AnimeRecord{ID: 1, Broadcast: cachedSlot, FetchedAt: tt.fetchedAt}))
			require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{
				AnimeID:              1,
				ProviderID:           "airing-1",
				IsFavorite:           true,
				Episodes:             []domain.EpisodeRef{{EpisodeID: "airing-1?ep=1"}},
				LastEpisodesSyncedAt: synced,
			}))

			md := &scheduleSource{record: domain.AnimeRecord{ID: 1, Broadcast: movedSlot}}
			src := &episodeSource{lists: map[string][]domain.EpisodeRef{
				"airing-1": {{EpisodeID: "airing-1?ep=1"}, {EpisodeID: "airing-1?ep=2"}},
			}}
			svc := complement.NewService(md, src, s, logging.NullLogger())
			svc.SetClock(func() time.Time { return now })

			r := NewRefresher(svc, "", logging.NullLogger())
			r.SetClock(func() time.Time { return now })
			summary := r.RunOnce(context.Background())

			assert.Equal(t, tt.wantMetadata, md.calls)
			assert.Equal(t, tt.wantUpdated, summary.Updated)
		})
	}
}
