package cachekey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// mapStore is an in-memory KeyStore for exercising key derivation.
type mapStore struct {
	prefix  string
	entries map[string][]byte
}

func newMapStore(prefix string) *mapStore {
	return &mapStore{prefix: prefix, entries: make(map[string][]byte)}
}

func (s *mapStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := s.entries[key]
	return value, ok, nil
}

func (s *mapStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries[key] = value
	return nil
}

func (s *mapStore) MakeKey(raw string) string {
	return s.prefix + raw
}

func TestLookupWithoutVaryIndex(t *testing.T) {
	keyer := NewKeyer(newMapStore(""))
	r := httptest.NewRequest("GET", "/page", nil)

	_, ok, err := keyer.Lookup(context.Background(), r, "GET")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Found key for never-cached url")
	}
}

func TestLearnThenLookup(t *testing.T) {
	st := newMapStore("")
	keyer := NewKeyer(st)
	r := httptest.NewRequest("GET", "/page", nil)

	learned, err := keyer.Learn(context.Background(), r, http.Header{}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	key, ok, err := keyer.Lookup(context.Background(), r, "GET")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Vary index not found after learning")
	}
	if key != learned {
		t.Fatalf("Lookup key %s differs from learned key %s", key, learned)
	}
}

func TestKeysAreStable(t *testing.T) {
	keyer := NewKeyer(newMapStore(""))
	r1 := httptest.NewRequest("GET", "/page?a=1", nil)
	r2 := httptest.NewRequest("GET", "/page?a=1", nil)

	k1, err := keyer.Learn(context.Background(), r1, http.Header{}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := keyer.Learn(context.Background(), r2, http.Header{}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatalf("Keys differ for identical requests: %s / %s", k1, k2)
	}
}

func TestVaryingHeaderValuesProduceDistinctKeys(t *testing.T) {
	keyer := NewKeyer(newMapStore(""))
	resHeader := http.Header{}
	resHeader.Set("Vary", "Accept-Encoding")

	gzipped := httptest.NewRequest("GET", "/page", nil)
	gzipped.Header.Set("Accept-Encoding", "gzip")
	plain := httptest.NewRequest("GET", "/page", nil)
	plain.Header.Set("Accept-Encoding", "identity")

	k1, err := keyer.Learn(context.Background(), gzipped, resHeader, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := keyer.Learn(context.Background(), plain, resHeader, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Fatalf("Key %s does not account for varying header", k1)
	}

	// a request repeating a seen header value recomputes the same key
	again := httptest.NewRequest("GET", "/page", nil)
	again.Header.Set("Accept-Encoding", "gzip")
	key, ok, err := keyer.Lookup(context.Background(), again, "GET")
	if err != nil || !ok {
		t.Fatalf("Lookup: %v (found=%v)", err, ok)
	}
	if key != k1 {
		t.Fatalf("Recomputed key %s, want %s", key, k1)
	}
}

func TestVaryIndexSharedAcrossMethods(t *testing.T) {
	st := newMapStore("")
	keyer := NewKeyer(st)
	r := httptest.NewRequest("GET", "/page", nil)

	getKey, err := keyer.Learn(context.Background(), r, http.Header{}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	headKey, ok, err := keyer.Lookup(context.Background(), r, "HEAD")
	if err != nil || !ok {
		t.Fatalf("Lookup: %v (found=%v)", err, ok)
	}
	if headKey == getKey {
		t.Fatal("HEAD and GET keys should differ")
	}
	if !strings.Contains(headKey, ".HEAD.") || !strings.Contains(getKey, ".GET.") {
		t.Fatalf("Keys do not embed the method: %s / %s", getKey, headKey)
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	st := newMapStore("origin:")
	keyer := NewKeyer(st)
	r := httptest.NewRequest("GET", "/page", nil)

	key, err := keyer.Learn(context.Background(), r, http.Header{}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, "origin:") {
		t.Fatalf("Response key %s not namespaced", key)
	}
	for stored := range st.entries {
		if !strings.HasPrefix(stored, "origin:") {
			t.Fatalf("Stored key %s not namespaced", stored)
		}
	}
}

func TestVaryingHeaders(t *testing.T) {
	header := http.Header{}
	header.Add("Vary", "Accept-Encoding, Cookie")
	header.Add("Vary", "accept-language")
	header.Add("Vary", "Cookie")

	got := VaryingHeaders(header)
	want := []string{"accept-encoding", "accept-language", "cookie"}
	if len(got) != len(want) {
		t.Fatalf("Varying headers are %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Varying headers are %v, want %v", got, want)
		}
	}
}
