// Package cachekey derives the cache keys used to store and look up
// response variants.
//
// Two key namespaces are used. A vary-index key, derived from the request
// path only, stores the list of request headers named by a response's Vary
// header. A response key, derived from method, absolute URL and the current
// values of those varying headers, addresses the stored response itself.
// The vary-index entry is always written before any response entry that
// depends on it, so later requests can recompute the response key before
// they run.
package cachekey

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	varyIndexPrefix   = "varying_headers"
	responseKeyPrefix = "cache_page"
)

// KeyStore is the slice of the storage provider interface the keyer needs.
type KeyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MakeKey(raw string) string
}

// Keyer derives cache keys against a particular store's namespace.
type Keyer struct {
	store KeyStore
}

func NewKeyer(store KeyStore) Keyer {
	return Keyer{store: store}
}

// Learn records which request headers the response varies on and returns the
// key the response should be stored under.
//
// The varying-headers list is parsed from the response's Vary header
// (lowercased, deduplicated, sorted for determinism) and written to the
// vary-index entry for the request path. Writing the index first is what
// makes lookups for later requests possible before those requests run.
func (k Keyer) Learn(ctx context.Context, r *http.Request, resHeader http.Header, ttl time.Duration) (string, error) {
	varying := VaryingHeaders(resHeader)

	value, err := json.Marshal(varying)
	if err != nil {
		return "", err
	}
	if err := k.store.Set(ctx, k.varyIndexKey(r), value, ttl); err != nil {
		return "", err
	}

	return k.responseKey(r, r.Method, varying), nil
}

// Lookup recomputes the response key for the given request and method from
// the stored vary-index entry. The second return value is false when no
// vary-index entry exists, meaning this URL has never been cached and no
// lookup is possible.
//
// The method may legitimately differ from the request's own: a HEAD request
// first looks for a cached GET response, since reusing a GET-cached body for
// a HEAD response is valid.
func (k Keyer) Lookup(ctx context.Context, r *http.Request, method string) (string, bool, error) {
	value, ok, err := k.store.Get(ctx, k.varyIndexKey(r))
	if err != nil || !ok {
		return "", false, err
	}
	var varying []string
	if err := json.Unmarshal(value, &varying); err != nil {
		return "", false, err
	}
	return k.responseKey(r, method, varying), true, nil
}

// varyIndexKey returns the key of the vary-index entry for the request path.
// It is independent of method and query so all variants of a URL share one
// index.
func (k Keyer) varyIndexKey(r *http.Request) string {
	return k.store.MakeKey(fmt.Sprintf("%s.%s", varyIndexPrefix, hash(r.URL.Path)))
}

// responseKey returns a key addressing one stored response variant.
// The vary fingerprint hashes the request's current values of the varying
// headers in sorted header-name order, skipping absent headers.
func (k Keyer) responseKey(r *http.Request, method string, varying []string) string {
	fingerprint := md5.New()
	for _, name := range varying {
		if value := r.Header.Get(name); value != "" {
			fingerprint.Write([]byte(value))
		}
	}
	return k.store.MakeKey(fmt.Sprintf("%s.%s.%s.%s",
		responseKeyPrefix, method, hash(AbsoluteURL(r)), hex.EncodeToString(fingerprint.Sum(nil))))
}

// VaryingHeaders parses a response's Vary header as an HTTP list and returns
// the named request headers lowercased, deduplicated and sorted.
func VaryingHeaders(resHeader http.Header) []string {
	varying := []string{}
	seen := make(map[string]bool)
	for _, value := range resHeader.Values("Vary") {
		for _, name := range strings.Split(value, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			varying = append(varying, name)
		}
	}
	sort.Strings(varying)
	return varying
}

// AbsoluteURL reconstructs the absolute URL of a server request,
// including scheme, host, path and query.
func AbsoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// hash is the fixed-width digest used for both key namespaces.
// Keys are content addresses, not security material.
func hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
