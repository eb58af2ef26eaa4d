package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/anikino/internal/domain"
)

func openStores(t *testing.T) map[string]*ComplementStore {
	t.Helper()
	disk, err := NewComplementStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	mem, err := NewComplementStore("")
	require.NoError(t, err)

	return map[string]*ComplementStore{"bolt": disk, "memory": mem}
}

func TestStore_AnimeRecordRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			count := 12
			rec := domain.AnimeRecord{
				ID:           21,
				Title:        "One Piece",
				EpisodeCount: &count,
				Airing:       true,
				Broadcast:    domain.Broadcast{Weekday: "Sundays", LocalTime: "09:30", Timezone: "Asia/Tokyo"},
			}
			require.NoError(t, s.SaveAnimeRecord(rec))

			got, ok := s.GetAnimeRecord(21)
			require.True(t, ok)
			assert.Equal(t, rec.Title, got.Title)
			require.NotNil(t, got.EpisodeCount)
			assert.Equal(t, 12, *got.EpisodeCount)
			assert.Equal(t, rec.Broadcast, got.Broadcast)

			_, ok = s.GetAnimeRecord(22)
			assert.False(t, ok)
		})
	}
}

func TestStore_EpisodeComplementLifecycle(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ec := domain.EpisodeComplement{
				EpisodeID:     "one-piece-100?ep=2142",
				AnimeID:       21,
				ResolvedQuery: domain.EpisodeSourceQuery{EpisodeID: "one-piece-100?ep=2142", Server: "hd-1", Category: domain.CategorySub},
				Servers:       []domain.Server{{Name: "hd-1", Category: domain.CategorySub}},
				Source:        domain.SourcePayload{AnimeID: 21, StreamURL: "https://cdn.example/master.m3u8"},
				Screenshot:    []byte{0x89, 0x50, 0x4e, 0x47},
			}
			require.NoError(t, s.SaveEpisodeComplement(ec))

			got, ok := s.GetEpisodeComplement(ec.EpisodeID)
			require.True(t, ok)
			assert.Equal(t, ec.ResolvedQuery, got.ResolvedQuery)
			assert.Equal(t, ec.Screenshot, got.Screenshot)

			existed, err := s.DeleteEpisodeComplement(ec.EpisodeID)
			require.NoError(t, err)
			assert.True(t, existed)

			_, ok = s.GetEpisodeComplement(ec.EpisodeID)
			assert.False(t, ok)

			existed, err = s.DeleteEpisodeComplement(ec.EpisodeID)
			require.NoError(t, err)
			assert.False(t, existed)
		})
	}
}

func TestStore_ListAnimeComplements(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			synced := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{AnimeID: 1, ProviderID: "a-1", IsFavorite: true, LastEpisodesSyncedAt: synced}))
			require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{AnimeID: 2, ProviderID: "2"}))
			require.NoError(t, s.SaveAnimeRecord(domain.AnimeRecord{ID: 3}))

			all, err := s.ListAnimeComplements()
			require.NoError(t, err)
			assert.Len(t, all, 2)

			byID := map[int]domain.AnimeComplement{}
			for _, c := range all {
				byID[c.AnimeID] = c
			}
			assert.True(t, byID[1].IsFavorite)
			assert.True(t, byID[1].LastEpisodesSyncedAt.Equal(synced))
			assert.Equal(t, "2", byID[2].ProviderID)
		})
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewComplementStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveAnimeComplement(domain.AnimeComplement{AnimeID: 5, ProviderID: "frieren-18542"}))
	require.NoError(t, s.Close())

	s, err = NewComplementStore(dir)
	require.NoError(t, err)
	defer s.Close()

	got, ok := s.GetAnimeComplement(5)
	require.True(t, ok)
	assert.Equal(t, "frieren-18542", got.ProviderID)
}

func TestStore_LastWriteWins(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			base := domain.EpisodeComplement{EpisodeID: "e1", AnimeID: 1}
			require.NoError(t, s.SaveEpisodeComplement(base.WithFavorite(true)))
			require.NoError(t, s.SaveEpisodeComplement(base.WithFavorite(false)))

			got, ok := s.GetEpisodeComplement("e1")
			require.True(t, ok)
			assert.False(t, got.IsFavorite)
		})
	}
}
