package store

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoStore is an in-process storage provider with cost-based admission
// and eviction. Writes are buffered by ristretto and become visible shortly
// after Set returns, which is acceptable for idempotent GET/HEAD caching.
type RistrettoStore struct {
	keyspace
	cache *ristretto.Cache
}

// NewRistrettoStore returns a ristretto-backed storage provider.
// entries is the expected number of entries when full, size the maximum
// number of bytes to hold.
func NewRistrettoStore(entries, size int64, opts Options) (*RistrettoStore, error) {
	if size == 0 {
		size = 1
	}
	if entries == 0 {
		entries = size
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: entries * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoStore{
		keyspace: newKeyspace(opts),
		cache:    cache,
	}, nil
}

func (r *RistrettoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	value, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (r *RistrettoStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.cache.SetWithTTL(key, value, int64(len(key)+len(value)), ttl)
	return nil
}

func (r *RistrettoStore) Close() error {
	r.cache.Close()
	return nil
}
