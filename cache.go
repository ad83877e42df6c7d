package pagecache

import (
	"net/http"
	"time"

	cachecontrol "github.com/page-cache/page-cache/pkg/cache-control"
	serializer "github.com/page-cache/page-cache/pkg/response-serializer"
)

// oneYear caps the freshness lifetime when no ttl is configured.
// From section 14.12 of RFC 2616: "HTTP/1.1 servers SHOULD NOT send
// Expires dates more than one year in the future."
const oneYear = 365 * 24 * time.Hour

func requestCachable(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func statusCachable(statusCode int) bool {
	return statusCode == http.StatusOK || statusCode == http.StatusNotModified
}

// getFromCache retrieves a stored response for a GET or HEAD request.
// A nil response with a nil error means a plain miss: the response for this
// request can (and should) be added to the cache once computed.
//
// The GET-variant key is always tried first, even for HEAD requests, since
// a GET-cached body may be reused for a HEAD response. A HEAD request falls
// back to its own key when the GET variant is absent.
func (m *CacheMiddleware) getFromCache(r *http.Request) (*serializer.Response, error) {
	ctx := r.Context()

	if !requestCachable(r) {
		m.log.Trace().Str("method", r.Method).Msg("Request not cachable")
		return nil, ErrRequestNotCachable
	}

	key, ok, err := m.keyer.Lookup(ctx, r, http.MethodGet)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.log.Trace().Str("url", r.URL.String()).Msg("No vary index for url")
		return nil, nil
	}

	value, found, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found && r.Method == http.MethodHead {
		key, _, err = m.keyer.Lookup(ctx, r, http.MethodHead)
		if err != nil {
			return nil, err
		}
		value, found, err = m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, nil
	}

	m.log.Trace().Str("key", key).Msg("Found stored response")
	return serializer.Decode(value)
}

// storeInCache classifies a completed response and, if cachable, stores it
// for reuse. Freshness headers (Cache-Control max-age and Expires) are
// injected before storing, so the stored copy and the copy forwarded to the
// client carry the same headers.
//
// Responses failing a storage rule return ErrResponseNotCachable with the
// headers untouched.
func (m *CacheMiddleware) storeInCache(res *serializer.Response, r *http.Request) error {
	ctx := r.Context()

	if !statusCachable(res.StatusCode) {
		m.log.Trace().Int("status", res.StatusCode).Msg("Response not cachable: status code")
		return ErrResponseNotCachable
	}
	// Never hand session-scoped content to clients that sent no cookies.
	if len(res.Header.Values("Set-Cookie")) > 0 && r.Header.Get("Cookie") == "" {
		m.log.Trace().Msg("Response not cachable: cookies for cookieless request")
		return ErrResponseNotCachable
	}

	maxAge, configured := m.store.TTL()
	if configured && maxAge == 0 {
		m.log.Trace().Msg("Response not cachable: zero ttl")
		return ErrResponseNotCachable
	}
	if !configured {
		maxAge = oneYear
	}

	if res.Header.Get("Expires") == "" {
		res.Header.Set("Expires", time.Now().Add(maxAge).UTC().Format(http.TimeFormat))
	}
	overrides := cachecontrol.NewOverrides().Set("max_age", int(maxAge.Seconds()))
	if err := cachecontrol.Patch(res.Header, overrides); err != nil {
		return err
	}

	key, err := m.keyer.Learn(ctx, r, res.Header, maxAge)
	if err != nil {
		return err
	}
	value, err := serializer.Encode(res)
	if err != nil {
		return err
	}

	m.log.Trace().Str("key", key).Dur("maxAge", maxAge).Msg("Storing response")
	return m.store.Set(ctx, key, value, maxAge)
}
