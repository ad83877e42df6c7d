package pagecache

import (
	"net/http"

	cachecontrol "github.com/page-cache/page-cache/pkg/cache-control"

	"github.com/rs/zerolog"
)

// CacheControlMiddleware rewrites the Cache-Control header of outgoing
// responses with a fixed set of directive overrides captured at
// construction. It never buffers and never touches the store; body events
// pass through unmodified.
type CacheControlMiddleware struct {
	overrides *cachecontrol.Overrides
	log       zerolog.Logger
}

// NewCacheControl validates the override set and returns the middleware.
// Unsupported directives (public, private) fail here, at composition time,
// with ErrNotImplementedDirective.
func NewCacheControl(overrides *cachecontrol.Overrides, logger *zerolog.Logger) (*CacheControlMiddleware, error) {
	if err := overrides.Validate(); err != nil {
		return nil, err
	}
	var log zerolog.Logger
	if logger == nil {
		log = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		log = *logger
	}
	return &CacheControlMiddleware{
		overrides: overrides,
		log:       log,
	}, nil
}

// Middleware wraps next so every response it produces carries the patched
// Cache-Control header.
func (c *CacheControlMiddleware) Middleware(next http.Handler) http.Handler {
	return &cacheControlHandler{c: c, next: next}
}

type cacheControlHandler struct {
	c    *CacheControlMiddleware
	next http.Handler
}

func (h *cacheControlHandler) Unwrap() http.Handler {
	return h.next
}

// ServeHTTP implements the http.Handler interface.
func (h *cacheControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.c.log.Trace().Stringer("overrides", h.c.overrides).Msg("Patching cache-control")
	h.next.ServeHTTP(&patchWriter{rw: w, c: h.c}, r)
}

// patchWriter patches the header set exactly once, at the header event.
type patchWriter struct {
	rw      http.ResponseWriter
	c       *CacheControlMiddleware
	patched bool
}

// Implementation of http.ResponseWriter
func (p *patchWriter) Header() http.Header {
	return p.rw.Header()
}

// Implementation of http.ResponseWriter
func (p *patchWriter) WriteHeader(statusCode int) {
	p.patch()
	p.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (p *patchWriter) Write(b []byte) (int, error) {
	// an untouched header set means this write implies the header event
	p.patch()
	return p.rw.Write(b)
}

// Implementation of http.Flusher
func (p *patchWriter) Flush() {
	p.patch()
	if flusher, ok := p.rw.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (p *patchWriter) patch() {
	if p.patched {
		return
	}
	p.patched = true
	// overrides are validated at construction, so this cannot fail on
	// unsupported directives
	if err := cachecontrol.Patch(p.rw.Header(), p.c.overrides); err != nil {
		p.c.log.Error().Err(err).Msg("Could not patch cache-control header")
	}
}
