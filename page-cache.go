// Package pagecache is an HTTP response cache implemented as net/http
// middleware. Responses to GET and HEAD requests are stored in a pluggable
// key-value store and replayed for later requests, with full support for
// Vary-based response variants.
//
// A request is served from the cache when a previously stored response
// satisfies it. Otherwise the wrapped handler runs behind a buffering
// writer; once the response is complete it is classified, possibly stored,
// and forwarded. Responses delivered in more than one chunk are passed
// through untouched and never stored.
package pagecache

import (
	"errors"
	"net/http"

	cachekey "github.com/page-cache/page-cache/pkg/cache-key"
	serializer "github.com/page-cache/page-cache/pkg/response-serializer"
	"github.com/page-cache/page-cache/store"

	"github.com/rs/zerolog"
)

// statusHeader annotates responses with the cache outcome when exposure is
// enabled.
const statusHeader = "Page-Cache"

type Config struct {
	// Storage for cache entries. Required.
	Store store.Store
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Exposed adds a "Page-Cache: HIT|MISS|BYPASS" response header.
	Exposed bool
	// Monitor receives cache decision events. Optional.
	Monitor Monitor
}

// CacheMiddleware caches responses passing through the handlers it wraps.
// All per-request state lives on the stack of a single request; concurrent
// requests share nothing but the store, so no locking happens here.
type CacheMiddleware struct {
	store   store.Store
	keyer   cachekey.Keyer
	log     zerolog.Logger
	exposed bool
	monitor Monitor
}

// New initializes a cache middleware instance using the given store.
func New(config Config) *CacheMiddleware {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	monitor := config.Monitor
	if monitor == nil {
		monitor = noopMonitor{}
	}

	return &CacheMiddleware{
		store:   config.Store,
		keyer:   cachekey.NewKeyer(config.Store),
		log:     logger,
		exposed: config.Exposed,
		monitor: monitor,
	}
}

// Wrap returns a handler serving next's responses through the cache.
// Wrapping a handler that already sits behind a caching layer is a
// configuration error and fails with ErrDuplicateCaching: stacked caches
// would silently double-store and shadow each other.
func (m *CacheMiddleware) Wrap(next http.Handler) (http.Handler, error) {
	if isCacheWrapped(next) {
		return nil, ErrDuplicateCaching
	}
	return &cacheHandler{m: m, next: next}, nil
}

// Middleware is Wrap for middleware chains like chi's Use; it panics on a
// duplicate caching layer since that can only be a programming error.
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	h, err := m.Wrap(next)
	if err != nil {
		panic(err)
	}
	return h
}

// isCacheWrapped walks the handler chain looking for an existing caching
// layer. Handlers composed by this package expose the chain via Unwrap.
func isCacheWrapped(h http.Handler) bool {
	for h != nil {
		if _, ok := h.(*cacheHandler); ok {
			return true
		}
		wrapper, ok := h.(interface{ Unwrap() http.Handler })
		if !ok {
			return false
		}
		h = wrapper.Unwrap()
	}
	return false
}

type cacheHandler struct {
	m    *CacheMiddleware
	next http.Handler
}

func (h *cacheHandler) Unwrap() http.Handler {
	return h.next
}

// ServeHTTP implements the http.Handler interface.
func (h *cacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := h.m

	res, err := m.getFromCache(r)
	if errors.Is(err, ErrRequestNotCachable) {
		m.monitor.Bypass()
		if m.exposed {
			w.Header().Set(statusHeader, "BYPASS")
		}
		h.next.ServeHTTP(w, r)
		return
	}
	if err != nil {
		m.log.Error().Err(err).Msg("Cache lookup failed")
		m.monitor.Error()
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if res != nil {
		m.logLookup(r, true)
		m.monitor.Hit()
		if m.exposed {
			w.Header().Set(statusHeader, "HIT")
		}
		writeResponse(w, res)
		return
	}

	m.logLookup(r, false)
	m.monitor.Miss()
	// the outcome header goes on the underlying writer so it never ends up
	// inside the stored copy
	if m.exposed {
		w.Header().Set(statusHeader, "MISS")
	}
	saver := newResponseSaver(w)
	h.next.ServeHTTP(saver, r)
	m.finish(saver, r)
}

// finish classifies the intercepted response and releases it downstream.
func (m *CacheMiddleware) finish(saver *responseSaver, r *http.Request) {
	if saver.Streaming() {
		// Already passed through verbatim; nothing held back to release.
		m.log.Trace().Msg("Response not cachable: streaming")
		return
	}

	res := &serializer.Response{
		StatusCode: saver.StatusCode(),
		Header:     saver.Header(),
		Body:       saver.Body(),
	}
	err := m.storeInCache(res, r)
	if err != nil && !errors.Is(err, ErrResponseNotCachable) {
		m.log.Error().Err(err).Msg("Could not store response")
		m.monitor.Error()
	}

	if err := saver.forward(); err != nil {
		m.log.Error().Err(err).Msg("Could not write response body to client")
	}
}

func (m *CacheMiddleware) logLookup(r *http.Request, hit bool) {
	outcome := "MISS"
	if hit {
		outcome = "HIT"
	}
	m.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("lookup", outcome).
		Msg("Cache lookup")
}

func writeResponse(w http.ResponseWriter, res *serializer.Response) {
	copyHeader(w.Header(), res.Header)
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}
