// Package store contains the cache storage providers used by page-cache.
// A provider stores and retrieves opaque []byte values and keeps track of
// entry expiration. The middleware itself never inspects stored bytes and
// never holds locks; all concurrency control lives behind this interface.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when a storage backend cannot be reached.
// Lookups and writes against an unavailable store fail outright; retry
// policy belongs to the backend client, not to the cache.
var ErrUnavailable = errors.New("cache store unavailable")

// Store is the interface for a cache storage provider.
//
// Implementations must be safe for concurrent use!
type Store interface {
	// Get returns the value stored under the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	// If the entry has expired, the boolean must be false.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the given value under the given key.
	// The entry must not be returned by Get after ttl has passed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// MakeKey namespaces a raw cache key for this store instance.
	MakeKey(raw string) string
	// TTL returns the configured default time to live for this store,
	// along with a boolean indicating whether a ttl was configured at all.
	// A configured zero ttl means entries must never be stored.
	TTL() (time.Duration, bool)
}

// Options holds configuration common to all storage providers.
type Options struct {
	// KeyPrefix is prepended to every key passing through MakeKey.
	// Use it to share one storage backend between several caches.
	KeyPrefix string
	// TTL is the default time to live for stored entries.
	// If nil, no ttl is configured and the caching policy applies its
	// one-year ceiling. An explicit zero disables storing entirely.
	TTL *time.Duration
}

// TTL is a convenience for setting Options.TTL from a literal.
func TTL(d time.Duration) *time.Duration {
	return &d
}

// keyspace implements the MakeKey and TTL parts of Store.
// Providers embed it so they only need to supply Get and Set.
type keyspace struct {
	prefix string
	ttl    *time.Duration
}

func newKeyspace(opts Options) keyspace {
	return keyspace{
		prefix: opts.KeyPrefix,
		ttl:    opts.TTL,
	}
}

func (k keyspace) MakeKey(raw string) string {
	return k.prefix + raw
}

func (k keyspace) TTL() (time.Duration, bool) {
	if k.ttl == nil {
		return 0, false
	}
	return *k.ttl, true
}
