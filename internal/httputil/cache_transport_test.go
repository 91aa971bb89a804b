package httputil

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, cacheControl string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if cacheControl != "" {
			w.Header().Set("Cache-Control", cacheControl)
		}
		if r.Header.Get("If-Modified-Since") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_, _ = io.WriteString(w, "calendar "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func get(t *testing.T, client *http.Client, req *http.Request) (int, string) {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestUnit_CacheTransport_ServesRepeatGetsFromMemory(t *testing.T) {
	srv, calls := countingServer(t, "")
	var hits []bool
	client := &http.Client{Transport: &CacheTransport{
		OnCacheHit: func(_ string, hit bool) { hits = append(hits, hit) },
	}}

	for range 3 {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/calendars/index2.html", nil)
		status, body := get(t, client, req)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "calendar /calendars/index2.html", body)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []bool{false, true, true}, hits)
}

func TestUnit_CacheTransport_ConditionalRequestsBypass(t *testing.T) {
	srv, calls := countingServer(t, "")
	client := &http.Client{Transport: &CacheTransport{}}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/a.html", nil)
	get(t, client, req)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/a.html", nil)
	req.Header.Set("If-Modified-Since", time.Now().UTC().Format(http.TimeFormat))
	status, _ := get(t, client, req)
	assert.Equal(t, http.StatusNotModified, status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestUnit_CacheTransport_HonorsNoStoreAndMaxAge(t *testing.T) {
	srv, calls := countingServer(t, "no-store")
	client := &http.Client{Transport: &CacheTransport{}}
	for range 2 {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/a.html", nil)
		get(t, client, req)
	}
	assert.Equal(t, int32(2), calls.Load())

	srv, calls = countingServer(t, "max-age=60")
	now := time.Date(2013, 7, 18, 12, 0, 0, 0, time.UTC)
	client = &http.Client{Transport: &CacheTransport{Now: func() time.Time { return now }}}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/a.html", nil)
	get(t, client, req)
	now = now.Add(30 * time.Second)
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/a.html", nil)
	get(t, client, req)
	assert.Equal(t, int32(1), calls.Load())
	now = now.Add(time.Minute)
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/a.html", nil)
	get(t, client, req)
	assert.Equal(t, int32(2), calls.Load())
}

func TestUnit_CacheTransport_QueryOrderSharesEntry(t *testing.T) {
	srv, calls := countingServer(t, "")
	var hits []bool
	client := &http.Client{Transport: &CacheTransport{
		OnCacheHit: func(_ string, hit bool) { hits = append(hits, hit) },
	}}

	for _, query := range []string{
		"?language=en-US&external_source=imdb_id",
		"?external_source=imdb_id&language=en-US",
	} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/3/find/tt0046250"+query, nil)
		status, _ := get(t, client, req)
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []bool{false, true}, hits)
}

func TestUnit_CacheTransport_RedactsCredentials(t *testing.T) {
	srv, _ := countingServer(t, "")
	const secret = "SECRETKEY123"
	target := srv.URL + "/3/find/tt0046250?api_key=" + secret + "&language=en-US"

	t.Run("debug log", func(t *testing.T) {
		var logs bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
		t.Cleanup(func() { slog.SetDefault(prev) })

		client := &http.Client{Transport: &CacheTransport{}}
		for range 2 {
			req, _ := http.NewRequest(http.MethodGet, target, nil)
			get(t, client, req)
		}
		assert.Contains(t, logs.String(), `msg="http cache"`)
		assert.Contains(t, logs.String(), "/3/find/tt0046250")
		assert.NotContains(t, logs.String(), secret)
	})

	t.Run("hit callback", func(t *testing.T) {
		var keys []string
		client := &http.Client{Transport: &CacheTransport{
			OnCacheHit: func(key string, _ bool) { keys = append(keys, key) },
		}}
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		get(t, client, req)
		require.Len(t, keys, 1)
		assert.NotContains(t, keys[0], secret)
		assert.Contains(t, keys[0], "api_key=REDACTED")
	})
}

func TestUnit_NewClient_SetsUserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(nil, ClientOptions{Every: time.Millisecond, CacheEntries: -1})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	get(t, client, req)
	assert.Equal(t, DefaultUserAgent, got.Load())
}

func TestUnit_MatchDomain(t *testing.T) {
	tests := []struct {
		domain, url string
		want        bool
	}{
		{"", "http://example.com/", true},
		{"www.stanfordtheatre.org", "http://www.stanfordtheatre.org/calendars/", true},
		{"www.stanfordtheatre.org", "http://stanfordtheatre.org/", false},
		{".themoviedb.org", "https://api.themoviedb.org/3/find/tt0046250", true},
		{".themoviedb.org", "https://themoviedb.org/", true},
		{".themoviedb.org", "https://notthemoviedb.org/", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain+" "+tt.url, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			assert.Equal(t, tt.want, MatchDomain(tt.domain, req.URL))
		})
	}
}
