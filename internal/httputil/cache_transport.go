package httputil

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
)

const defaultLRUMaxEntries = 256

// CacheTransport is an http.RoundTripper that keeps successful GET responses in
// memory, keyed by method and URL, with LRU eviction at MaxEntries.
//
// Conditional requests (If-Modified-Since, If-None-Match) and requests asking
// for a fresh copy always go to Base: the snapshot logic needs the server's
// own answer to those.
type CacheTransport struct {
	Base http.RoundTripper

	// MaxEntries is the LRU size. Zero means defaultLRUMaxEntries.
	MaxEntries int

	// OnCacheHit, if set, is called for every RoundTrip with the cache key
	// (credentials redacted) and whether it was a hit. Otherwise the outcome is
	// logged at debug level.
	OnCacheHit func(key string, hit bool)

	// Now is the clock used for max-age expiry; nil means time.Now.
	Now func() time.Time

	initOnce sync.Once
	cache    *lru.Cache[string, *cachedResponse]
	initErr  error
}

type cachedResponse struct {
	Status  int
	Header  http.Header
	Body    []byte
	Expires time.Time // zero = no expiration (honor only LRU)
}

func (t *CacheTransport) ensureCache() error {
	t.initOnce.Do(func() {
		size := t.MaxEntries
		if size <= 0 {
			size = defaultLRUMaxEntries
		}
		t.cache, t.initErr = lru.New[string, *cachedResponse](size)
	})
	return t.initErr
}

func (t *CacheTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *CacheTransport) record(req *http.Request, hit bool) {
	key := req.Method + " " + redactedURL(req.URL)
	if t.OnCacheHit != nil {
		t.OnCacheHit(key, hit)
		return
	}
	slog.Debug("http cache", "key", key, "hit", hit)
}

// credentialParams are query parameters that must never reach a log line.
var credentialParams = []string{"api_key", "apikey", "access_token", "token", "key"}

// cacheKey identifies a request independently of query parameter order; some
// clients build their query strings from maps.
func cacheKey(req *http.Request) string {
	u := *req.URL
	u.RawQuery = u.Query().Encode()
	return req.Method + " " + u.String()
}

// redactedURL renders u with sorted query parameters and credentials masked.
func redactedURL(u *url.URL) string {
	c := *u
	q := c.Query()
	for _, name := range credentialParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	c.User = nil
	return c.String()
}

// RoundTrip implements http.RoundTripper.
func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.ensureCache(); err != nil {
		return nil, err
	}
	key := cacheKey(req)
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	cacheable := req.Method == http.MethodGet && !isConditional(req)
	if cacheable && !requestWantsFresh(req) {
		if entry, ok := t.cache.Get(key); ok {
			if entry.Expires.IsZero() || t.now().Before(entry.Expires) {
				t.record(req, true)
				return responseFromCache(req, entry), nil
			}
			t.cache.Remove(key)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.record(req, false)
	if !cacheable || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}
	noStore, maxAge := responseCacheControl(resp.Header)
	if noStore {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL, err)
	}
	t.cache.Add(key, &cachedResponse{
		Status:  resp.StatusCode,
		Header:  resp.Header.Clone(),
		Body:    body,
		Expires: t.expires(maxAge),
	})
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func responseFromCache(req *http.Request, entry *cachedResponse) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Status, http.StatusText(entry.Status)),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        entry.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

func isConditional(req *http.Request) bool {
	return req.Header.Get("If-Modified-Since") != "" || req.Header.Get("If-None-Match") != ""
}

// requestWantsFresh returns true if the request's Cache-Control asks to bypass cache (no-cache or max-age=0).
func requestWantsFresh(req *http.Request) bool {
	cc := req.Header.Get("Cache-Control")
	if cc == "" {
		return false
	}
	for part := range strings.SplitSeq(cc, ",") {
		part = strings.TrimSpace(part)
		if part == "no-cache" {
			return true
		}
		if after, ok := strings.CutPrefix(part, "max-age="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(after)); err == nil && n <= 0 {
				return true
			}
		}
	}
	return false
}

// responseCacheControl parses Cache-Control from response headers.
// Returns noStore (do not cache) and maxAge in seconds (0 = not set).
func responseCacheControl(header http.Header) (noStore bool, maxAge int) {
	for _, cc := range header["Cache-Control"] {
		for part := range strings.SplitSeq(cc, ",") {
			part = strings.TrimSpace(strings.ToLower(part))
			switch {
			case part == "no-store" || part == "no-cache":
				noStore = true
			case strings.HasPrefix(part, "max-age="):
				if n, err := strconv.Atoi(strings.TrimSpace(part[len("max-age="):])); err == nil && n > 0 {
					maxAge = n
				}
			case strings.HasPrefix(part, "s-maxage="):
				if n, err := strconv.Atoi(strings.TrimSpace(part[len("s-maxage="):])); err == nil && n > 0 {
					maxAge = n
				}
			}
		}
	}
	return noStore, maxAge
}

func (t *CacheTransport) expires(maxAgeSeconds int) time.Time {
	if maxAgeSeconds <= 0 {
		return time.Time{}
	}
	return t.now().Add(time.Duration(maxAgeSeconds) * time.Second)
}
