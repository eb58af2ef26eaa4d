package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/anikino/internal/domain"
)

// Bucket names
var (
	bucketAnimeRecords       = []byte("anime_records")
	bucketAnimeComplements   = []byte("anime_complements")
	bucketEpisodeComplements = []byte("episode_complements")
)

var allBuckets = [][]byte{bucketAnimeRecords, bucketAnimeComplements, bucketEpisodeComplements}

// ComplementStore implements domain.Store using BoltDB.
// Every write is a single bolt transaction; concurrent writers to the same
// key are last-write-wins.
type ComplementStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewComplementStore opens (or creates) anikino.db under dir.
// An empty dir gives a memory-only store.
func NewComplementStore(dir string) (*ComplementStore, error) {
	if dir == "" {
		return &ComplementStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "anikino.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ComplementStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *ComplementStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func cacheKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

func (s *ComplementStore) get(bucket []byte, key string, dest interface{}) bool {
	ck := cacheKey(bucket, key)

	s.mu.RLock()
	if data, ok := s.cache[ck]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return false
	}

	s.mu.Lock()
	s.cache[ck] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *ComplementStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", bucket, key, err)
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucket).Put([]byte(key), data)
		})
		if err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", bucket, key, err)
		}
	}

	s.mu.Lock()
	s.cache[cacheKey(bucket, key)] = data
	s.mu.Unlock()
	return nil
}

func (s *ComplementStore) delete(bucket []byte, key string) (bool, error) {
	ck := cacheKey(bucket, key)

	s.mu.Lock()
	_, cached := s.cache[ck]
	delete(s.cache, ck)
	s.mu.Unlock()

	if s.db == nil {
		return cached, nil
	}

	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return existed, nil
}

// scan returns every raw value in a bucket
func (s *ComplementStore) scan(bucket []byte) ([][]byte, error) {
	if s.db == nil {
		prefix := cacheKey(bucket, "")
		s.mu.RLock()
		defer s.mu.RUnlock()
		keys := make([]string, 0, len(s.cache))
		for k := range s.cache {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		values := make([][]byte, len(keys))
		for i, k := range keys {
			values[i] = s.cache[k]
		}
		return values, nil
	}

	var values [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			data := make([]byte, len(v))
			copy(data, v)
			values = append(values, data)
			return nil
		})
	})
	return values, err
}

// === Anime records ===

func (s *ComplementStore) GetAnimeRecord(animeID int) (*domain.AnimeRecord, bool) {
	var record domain.AnimeRecord
	if !s.get(bucketAnimeRecords, strconv.Itoa(animeID), &record) {
		return nil, false
	}
	return &record, true
}

func (s *ComplementStore) SaveAnimeRecord(record domain.AnimeRecord) error {
	return s.set(bucketAnimeRecords, strconv.Itoa(record.ID), record)
}

// === Anime complements ===

func (s *ComplementStore) GetAnimeComplement(animeID int) (*domain.AnimeComplement, bool) {
	var c domain.AnimeComplement
	if !s.get(bucketAnimeComplements, strconv.Itoa(animeID), &c) {
		return nil, false
	}
	return &c, true
}

func (s *ComplementStore) SaveAnimeComplement(c domain.AnimeComplement) error {
	return s.set(bucketAnimeComplements, strconv.Itoa(c.AnimeID), c)
}

// ListAnimeComplements returns every stored anime complement (full scan)
func (s *ComplementStore) ListAnimeComplements() ([]domain.AnimeComplement, error) {
	values, err := s.scan(bucketAnimeComplements)
	if err != nil {
		return nil, fmt.Errorf("failed to scan anime complements: %w", err)
	}
	out := make([]domain.AnimeComplement, 0, len(values))
	for _, v := range values {
		var c domain.AnimeComplement
		if err := json.Unmarshal(v, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// === Episode complements ===

func (s *ComplementStore) GetEpisodeComplement(episodeID string) (*domain.EpisodeComplement, bool) {
	var c domain.EpisodeComplement
	if !s.get(bucketEpisodeComplements, episodeID, &c) {
		return nil, false
	}
	return &c, true
}

func (s *ComplementStore) SaveEpisodeComplement(c domain.EpisodeComplement) error {
	return s.set(bucketEpisodeComplements, c.EpisodeID, c)
}

func (s *ComplementStore) DeleteEpisodeComplement(episodeID string) (bool, error) {
	return s.delete(bucketEpisodeComplements, episodeID)
}
