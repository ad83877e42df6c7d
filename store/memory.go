package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore is an in-process storage provider backed by a TTL cache.
// Expired entries are never returned; they are actively evicted only
// while the reaper started by Start is running.
type MemoryStore struct {
	keyspace
	cache *ttlcache.Cache[string, []byte]
}

// NewMemoryStore returns an in-memory storage provider.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		keyspace: newKeyspace(opts),
		// expiry is fixed at store time, reads must not extend it
		cache: ttlcache.New(ttlcache.WithDisableTouchOnHit[string, []byte]()),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, value, ttl)
	return nil
}

// Start runs the expired-entry reaper until Stop is called.
// Get filters expired entries either way, so running the reaper is
// only needed to reclaim memory in long-lived processes.
func (m *MemoryStore) Start() {
	m.cache.Start()
}

func (m *MemoryStore) Stop() {
	m.cache.Stop()
}
