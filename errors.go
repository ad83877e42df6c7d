package pagecache

import (
	"errors"

	cachecontrol "github.com/page-cache/page-cache/pkg/cache-control"
	"github.com/page-cache/page-cache/store"
)

// ErrRequestNotCachable marks a request whose method rules out caching.
// It is recovered locally by bypassing lookup and storage entirely; the
// request is forwarded untouched and the error never reaches a client.
var ErrRequestNotCachable = errors.New("request not cachable")

// ErrResponseNotCachable marks a response that failed a storage rule
// (status code, cookie safety, or a zero ttl). It is recovered locally:
// the response is still forwarded normally, just not stored.
var ErrResponseNotCachable = errors.New("response not cachable")

// ErrDuplicateCaching is returned when a handler is wrapped in more than one
// caching layer. This is a configuration error and is surfaced at
// composition time, never discovered per request.
var ErrDuplicateCaching = errors.New("handler is already wrapped in a caching layer")

// ErrNotImplementedDirective is returned for public/private cache-control
// overrides, which the merge engine cannot arbitrate yet.
var ErrNotImplementedDirective = cachecontrol.ErrNotImplementedDirective

// ErrStoreUnavailable is returned when the storage backend cannot be
// reached. Lookup and store calls fail outright; the middleware does not
// retry.
var ErrStoreUnavailable = store.ErrUnavailable
