package complement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/logging"
	"github.com/mmcdole/anikino/internal/store"
)

type fakeMetadata struct {
	records map[int]domain.AnimeRecord
	err     error
	calls   int
}

func (f *fakeMetadata) FetchAnimeRecord(_ context.Context, animeID int) (*domain.AnimeRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[animeID]
	if !ok {
		return nil, fmt.Errorf("anime %d: 404", animeID)
	}
	return &rec, nil
}

type fakeStreaming struct {
	mu           sync.Mutex
	episodes     map[string][]domain.EpisodeRef
	episodesErr  error
	episodeCalls int
	searchHits   []domain.ProviderAnime
	malIDs       map[string]int
	malLookups   []string
}

func (f *fakeStreaming) FetchEpisodeList(_ context.Context, providerID string) ([]domain.EpisodeRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodeCalls++
	if f.episodesErr != nil {
		return nil, f.episodesErr
	}
	return f.episodes[providerID], nil
}

func (f *fakeStreaming) FetchServers(context.Context, string) ([]domain.Server, error) {
	return nil, nil
}

func (f *fakeStreaming) FetchSource(context.Context, string, string, domain.Category) (*domain.SourcePayload, error) {
	return nil, errors.New("not used")
}

func (f *fakeStreaming) SearchAnime(context.Context, string) ([]domain.ProviderAnime, error) {
	return f.searchHits, nil
}

func (f *fakeStreaming) ProviderMalID(_ context.Context, providerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.malLookups = append(f.malLookups, providerID)
	id, ok := f.malIDs[providerID]
	if !ok {
		return 0, fmt.Errorf("%s: 404", providerID)
	}
	return id, nil
}

var saturdayNoon = time.Date(2024, 1, 6, 12, 10, 0, 0, time.UTC) // 10 minutes after the slot

var weekly = domain.Broadcast{Weekday: "Saturdays", LocalTime: "12:00", Timezone: "UTC"}

func newTestService(t *testing.T, md *fakeMetadata, st *fakeStreaming) (*Service, *store.ComplementStore) {
	t.Helper()
	s, err := store.NewComplementStore("")
	require.NoError(t, err)
	svc := NewService(md, st, s, logging.NullLogger())
	svc.SetClock(func() time.Time { return saturdayNoon })
	return svc, s
}

func eps(ids ...string) []domain.EpisodeRef {
	out := make([]domain.EpisodeRef, len(ids))
	for i, id := range ids {
		out[i] = domain.EpisodeRef{EpisodeID: id, Number: i + 1, Title: "Episode " + id}
	}
	return out
}

func TestGetOrCreateAnimeComplement_CreatesUnlinked(t *testing.T) {
	md := &fakeMetadata{records: map[int]domain.AnimeRecord{52991: {ID: 52991, Title: "Sousou no Frieren"}}}
	svc, s := newTestService(t, md, &fakeStreaming{})

	c, err := svc.GetOrCreateAnimeComplement(context.Background(), 52991)
	require.NoError(t, err)
	assert.Equal(t, "52991", c.ProviderID)
	assert.False(t, c.IsLinked())

	_, ok := s.GetAnimeRecord(52991)
	assert.True(t, ok, "record persisted")

	// Second call is served from cache
	_, err = svc.GetOrCreateAnimeComplement(context.Background(), 52991)
	require.NoError(t, err)
	assert.Equal(t, 1, md.calls)
}

func TestGetOrCreateAnimeComplement_MetadataFailure(t *testing.T) {
	md := &fakeMetadata{err: errors.New("timeout")}
	svc, _ := newTestService(t, md, &fakeStreaming{})

	_, err := svc.GetOrCreateAnimeComplement(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMetadataFetchFailed)
}

func TestAnimeRecord_ForceFallsBackToCache(t *testing.T) {
	md := &fakeMetadata{records: map[int]domain.AnimeRecord{1: {ID: 1, Title: "v1"}}}
	svc, _ := newTestService(t, md, &fakeStreaming{})

	rec, err := svc.AnimeRecord(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "v1", rec.Title)
	assert.Equal(t, saturdayNoon, rec.FetchedAt)

	md.records[1] = domain.AnimeRecord{ID: 1, Title: "v2"}
	rec, err = svc.AnimeRecord(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, "v2", rec.Title, "forced fetch replaces the record")

	md.err = errors.New("down")
	rec, err = svc.AnimeRecord(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, "v2", rec.Title)
}

func TestRefreshEpisodesIfStale_FetchFailureReturnsInput(t *testing.T) {
	st := &fakeStreaming{episodesErr: errors.New("502")}
	svc, _ := newTestService(t, &fakeMetadata{}, st)

	record := domain.AnimeRecord{ID: 21, Broadcast: weekly}
	input := domain.AnimeComplement{
		AnimeID:              21,
		ProviderID:           "one-piece-100",
		Episodes:             eps("e1"),
		LastEpisodesSyncedAt: time.Date(2024, 1, 6, 11, 0, 0, 0, time.UTC),
	}

	res := svc.RefreshEpisodesIfStale(context.Background(), record, input, false)
	assert.Equal(t, 1, st.episodeCalls, "stale complement triggers a fetch")
	assert.Equal(t, input, res.Complement)
	assert.False(t, res.Refreshed)
	assert.ErrorIs(t, res.Warning, domain.ErrEpisodeListFetchFailed)
}

func TestRefreshEpisodesIfStale_UnlinkedNeverFetches(t *testing.T) {
	st := &fakeStreaming{episodes: map[string][]domain.EpisodeRef{"21": eps("e1")}}
	svc, _ := newTestService(t, &fakeMetadata{}, st)

	record := domain.AnimeRecord{ID: 21, Broadcast: weekly}
	input := domain.AnimeComplement{AnimeID: 21, ProviderID: "21"}

	for _, force := range []bool{false, true} {
		res := svc.RefreshEpisodesIfStale(context.Background(), record, input, force)
		assert.Equal(t, input, res.Complement)
		assert.NoError(t, res.Warning)
	}
	assert.Equal(t, 0, st.episodeCalls)
}

func TestRefreshEpisodesIfStale_FreshSkipsFetch(t *testing.T) {
	st := &fakeStreaming{}
	svc, _ := newTestService(t, &fakeMetadata{}, st)

	record := domain.AnimeRecord{ID: 21, Broadcast: weekly}
	input := domain.AnimeComplement{
		AnimeID:              21,
		ProviderID:           "one-piece-100",
		Episodes:             eps("e1"),
		LastEpisodesSyncedAt: time.Date(2024, 1, 6, 12, 5, 0, 0, time.UTC),
	}

	res := svc.RefreshEpisodesIfStale(context.Background(), record, input, false)
	assert.Equal(t, 0, st.episodeCalls)
	assert.Equal(t, input, res.Complement)
}

func TestRefreshEpisodesIfStale_UnknownTimezoneAssumedFresh(t *testing.T) {
	st := &fakeStreaming{}
	svc, _ := newTestService(t, &fakeMetadata{}, st)

	record := domain.AnimeRecord{ID: 21, Broadcast: domain.Broadcast{Weekday: "Saturdays", LocalTime: "12:00", Timezone: "Mars/Olympus"}}
	input := domain.AnimeComplement{AnimeID: 21, ProviderID: "x-1", Episodes: eps("e1"), LastEpisodesSyncedAt: time.Unix(0, 0)}

	res := svc.RefreshEpisodesIfStale(context.Background(), record, input, false)
	assert.Equal(t, 0, st.episodeCalls)
	assert.NoError(t, res.Warning)
}

func TestRefreshEpisodesIfStale_PersistsChangedList(t *testing.T) {
	st := &fakeStreaming{episodes: map[string][]domain.EpisodeRef{"one-piece-100": eps("e1", "e2")}}
	svc, s := newTestService(t, &fakeMetadata{}, st)

	record := domain.AnimeRecord{ID: 21, Broadcast: weekly}
	input := domain.AnimeComplement{
		AnimeID:              21,
		ProviderID:           "one-piece-100",
		Episodes:             eps("e1"),
		LastEpisodesSyncedAt: time.Date(2024, 1, 6, 11, 0, 0, 0, time.UTC),
	}

	res := svc.RefreshEpisodesIfStale(context.Background(), record, input, false)
	require.NoError(t, res.Warning)
	assert.True(t, res.Changed)
	assert.Len(t, res.Complement.Episodes, 2)
	assert.Equal(t, saturdayNoon, res.Complement.LastEpisodesSyncedAt)

	stored, ok := s.GetAnimeComplement(21)
	require.True(t, ok)
	assert.Len(t, stored.Episodes, 2)

	// Same list again: fetched but not rewritten
	res = svc.RefreshEpisodesIfStale(context.Background(), record, res.Complement, true)
	assert.True(t, res.Refreshed)
	assert.False(t, res.Changed)
}

func TestRefreshEpisodesIfStale_NeverSyncedFetches(t *testing.T) {
	st := &fakeStreaming{episodes: map[string][]domain.EpisodeRef{"frieren-18542": eps("e1")}}
	svc, _ := newTestService(t, &fakeMetadata{}, st)

	// Finished series: no broadcast slot at all
	record := domain.AnimeRecord{ID: 52991}
	input := domain.AnimeComplement{AnimeID: 52991, ProviderID: "frieren-18542"}

	res := svc.RefreshEpisodesIfStale(context.Background(), record, input, false)
	assert.Equal(t, 1, st.episodeCalls)
	assert.True(t, res.Changed)
}

func TestSetEpisodeFavorite_Idempotent(t *testing.T) {
	svc, s := newTestService(t, &fakeMetadata{}, &fakeStreaming{})
	require.NoError(t, s.SaveEpisodeComplement(domain.EpisodeComplement{EpisodeID: "e1", AnimeID: 1}))

	first, err := svc.SetEpisodeFavorite("e1", true)
	require.NoError(t, err)
	second, err := svc.SetEpisodeFavorite("e1", true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	stored, _ := s.GetEpisodeComplement("e1")
	assert.True(t, stored.IsFavorite)
}

func TestSetFavorite_Missing(t *testing.T) {
	svc, _ := newTestService(t, &fakeMetadata{}, &fakeStreaming{})

	_, err := svc.SetEpisodeFavorite("nope", true)
	assert.ErrorIs(t, err, domain.ErrEpisodeNotFound)

	_, err = svc.SetAnimeFavorite(99, true)
	assert.ErrorIs(t, err, domain.ErrAnimeNotFound)
}

func TestUpdateWatchProgress_AdvancesLastWatched(t *testing.T) {
	svc, s := newTestService(t, &fakeMetadata{}, &fakeStreaming{})
	require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{AnimeID: 1, ProviderID: "a-1", LastEpisodeWatchedID: "e1"}))
	require.NoError(t, s.SaveEpisodeComplement(domain.EpisodeComplement{EpisodeID: "e2", AnimeID: 1, Screenshot: []byte("old")}))

	ec, err := svc.UpdateWatchProgress("e2", 300, 1440, nil)
	require.NoError(t, err)
	require.NotNil(t, ec.LastPositionSeconds)
	assert.Equal(t, 300.0, *ec.LastPositionSeconds)
	assert.Equal(t, []byte("old"), ec.Screenshot)
	assert.Equal(t, 5*time.Minute, ec.ResumeOffset())

	anime, _ := s.GetAnimeComplement(1)
	assert.Equal(t, "e2", anime.LastEpisodeWatchedID)
}

func TestFavoriteAnime(t *testing.T) {
	svc, s := newTestService(t, &fakeMetadata{}, &fakeStreaming{})
	require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{AnimeID: 1, ProviderID: "1"}))
	require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{AnimeID: 2, ProviderID: "2"}))
	_, err := svc.SetAnimeFavorite(2, true)
	require.NoError(t, err)

	favs, err := svc.FavoriteAnime()
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, 2, favs[0].AnimeID)
}
