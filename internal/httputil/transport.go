package httputil

import (
	"cmp"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (fn RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}

var _ http.RoundTripper = RoundTripperFunc(nil)

// WithHeader sets (or, with an empty value, removes) a request header for
// requests to domain. See MatchDomain for the domain syntax.
func WithHeader(next http.RoundTripper, domain, name, value string) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if MatchDomain(domain, r.URL) {
			r2 := *r
			r2.Header = r.Header.Clone()
			if value == "" {
				r2.Header.Del(name)
			} else {
				r2.Header.Set(name, value)
			}
			r = &r2
		}
		return cmp.Or(next, http.DefaultTransport).RoundTrip(r)
	})
}

// RateLimited waits on limiter before each request to domain.
func RateLimited(next http.RoundTripper, domain string, limiter *rate.Limiter) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if MatchDomain(domain, r.URL) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
		}
		return cmp.Or(next, http.DefaultTransport).RoundTrip(r)
	})
}

// MatchDomain reports whether u is on domain. An empty domain matches
// everything and a leading dot also matches subdomains.
func MatchDomain(domain string, u *url.URL) bool {
	if domain == "" {
		return true
	}
	h := strings.Trim(strings.ToLower(u.Hostname()), ".")
	d := strings.ToLower(domain)
	if h == d {
		return true
	}
	if d[0] == '.' {
		return h == d[1:] || strings.HasSuffix(h, d)
	}
	return false
}

// DefaultUserAgent is sent to sites that reject Go's default client string.
const DefaultUserAgent = "Mozilla/5.0"

type ClientOptions struct {
	// UserAgent replaces Go's User-Agent header; empty means DefaultUserAgent.
	UserAgent string
	// Every is the minimum spacing between requests; zero disables limiting.
	Every time.Duration
	// CacheEntries bounds the in-memory response cache; negative disables it.
	CacheEntries int
	// OnCacheHit is passed through to CacheTransport.
	OnCacheHit func(cacheKey string, hit bool)
	Timeout    time.Duration
}

// NewClient builds the client used for every outgoing request: an in-memory
// response cache in front of a rate limiter in front of base.
func NewClient(base http.RoundTripper, opts ClientOptions) *http.Client {
	rt := WithHeader(base, "", "User-Agent", cmp.Or(opts.UserAgent, DefaultUserAgent))
	if opts.Every > 0 {
		rt = RateLimited(rt, "", rate.NewLimiter(rate.Every(opts.Every), 1))
	}
	if opts.CacheEntries >= 0 {
		rt = &CacheTransport{
			Base:       rt,
			MaxEntries: opts.CacheEntries,
			OnCacheHit: opts.OnCacheHit,
		}
	}
	return &http.Client{Transport: rt, Timeout: opts.Timeout}
}
