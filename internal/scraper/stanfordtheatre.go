package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/movies2ical/internal"
	"github.com/drewfead/movies2ical/internal/browser"
	"github.com/drewfead/movies2ical/internal/httputil"
)

var errHTTPRequestFailed = errors.New("http request failed")

type stanfordTheatreScraper struct {
	baseURL         string
	descriptor      string
	httpClient      *http.Client      // nil = fetch through headlessBrowser
	headlessBrowser browser.Interface // only used with WithBrowser
	snapshots       *Snapshots        // nil = every page is fresh
	now             func() time.Time
}

// StanfordTheatreOption applies configuration to a Stanford Theatre scraper.
type StanfordTheatreOption func(*stanfordTheatreScraper)

// WithBaseURL sets the site root (e.g. httptest.Server.URL in tests).
func WithBaseURL(baseURL string) StanfordTheatreOption {
	return func(s *stanfordTheatreScraper) {
		s.baseURL = baseURL
	}
}

// WithClient sets the HTTP client used for plain fetching.
func WithClient(client *http.Client) StanfordTheatreOption {
	return func(s *stanfordTheatreScraper) {
		if client != nil {
			s.httpClient = client
			s.headlessBrowser = nil
		}
	}
}

// WithBrowser fetches pages through a headless browser instead of plain HTTP.
// Browser fetches cannot be conditional, so freshness relies on Last-Modified
// and on comparing bodies with the last snapshot.
func WithBrowser(b browser.Interface) StanfordTheatreOption {
	return func(s *stanfordTheatreScraper) {
		if b != nil {
			s.headlessBrowser = b
			s.httpClient = nil
		}
	}
}

// WithSnapshots keeps dated copies of every calendar page in dir and uses them
// to tell new or modified calendars from ones already seen.
func WithSnapshots(dir string) StanfordTheatreOption {
	return func(s *stanfordTheatreScraper) {
		if dir != "" {
			s.snapshots = NewSnapshots(dir)
		}
	}
}

// WithClock overrides time.Now (snapshot dates, default calendar year).
func WithClock(now func() time.Time) StanfordTheatreOption {
	return func(s *stanfordTheatreScraper) {
		if now != nil {
			s.now = now
		}
	}
}

func StanfordTheatre(opts ...StanfordTheatreOption) internal.ScheduleSource {
	s := &stanfordTheatreScraper{
		baseURL:    internal.TheaterBaseURL,
		descriptor: "stanfordtheatre",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseURL = strings.TrimSuffix(s.baseURL, "/") + "/"
	if s.httpClient == nil && s.headlessBrowser == nil {
		s.httpClient = httputil.NewClient(nil, httputil.ClientOptions{
			Every:   time.Second,
			Timeout: 30 * time.Second,
		})
	}
	return s
}

func (s *stanfordTheatreScraper) Descriptor() string {
	return s.descriptor
}

// ScrapeSchedules finds every calendar page linked from the theater's home
// page and yields each one, fetched or taken from the newest snapshot.
func (s *stanfordTheatreScraper) ScrapeSchedules(
	ctx context.Context,
	req internal.ListSchedulesRequest,
) (<-chan internal.SchedulePage, error) {
	now := req.Now
	if now.IsZero() {
		now = s.now()
	}

	index, err := s.fetch(ctx, s.baseURL, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch theater home page: %w", err)
	}
	links, err := calendarLinks(index.body)
	if err != nil {
		return nil, err
	}
	slog.Info("calendar links found", "count", len(links), "url", s.baseURL)

	pages := make(chan internal.SchedulePage)
	go func() {
		defer close(pages)
		var fresh int
		for _, link := range links {
			page, err := s.calendarPage(ctx, link, now)
			if err != nil {
				slog.Warn("skipping calendar", "link", link, "error", err)
				continue
			}
			if page.Fresh {
				fresh++
			}
			select {
			case pages <- page:
			case <-ctx.Done():
				return
			}
		}
		slog.Info("calendars new or modified", "count", fresh)
	}()
	return pages, nil
}

// calendarLinks returns the distinct calendar page links of the home page in
// document order, path-escaped and relative to the site root.
func calendarLinks(index []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(index))
	if err != nil {
		return nil, fmt.Errorf("failed to parse theater home page: %w", err)
	}
	seen := map[string]bool{}
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.HasPrefix(href, "calendars") || href == "calendars/index.html" {
			return
		}
		escaped := (&url.URL{Path: href}).EscapedPath()
		if seen[escaped] {
			return
		}
		seen[escaped] = true
		links = append(links, escaped)
	})
	return links, nil
}

func (s *stanfordTheatreScraper) calendarPage(ctx context.Context, link string, now time.Time) (internal.SchedulePage, error) {
	pageName := path.Base(link)
	pageURL := s.baseURL + link

	var (
		latest Snapshot
		have   bool
		since  time.Time
	)
	if s.snapshots != nil {
		var err error
		if latest, have, err = s.snapshots.Latest(pageName); err != nil {
			return internal.SchedulePage{}, err
		}
	}
	if have {
		// anything published after the first second of the snapshot's day is new
		since = latest.Date.Add(time.Second)
	}

	f, err := s.fetch(ctx, pageURL, since)
	switch {
	case err != nil && have:
		slog.Warn("fetch failed, using snapshot", "url", pageURL, "snapshot", latest.Name(), "error", err)
		return s.snapshotPage(latest, pageURL, now)
	case err != nil:
		return internal.SchedulePage{}, err
	case have && f.notModified(since):
		slog.Debug("calendar not modified", "url", pageURL, "snapshot", latest.Name())
		return s.snapshotPage(latest, pageURL, now)
	case have && latest.Unchanged(f.body):
		slog.Debug("calendar unchanged", "url", pageURL, "snapshot", latest.Name())
		return s.snapshotPage(latest, pageURL, now)
	}

	name := SnapshotName(pageName, now)
	if s.snapshots != nil {
		snap, err := s.snapshots.Write(pageName, now, f.body)
		if err != nil {
			return internal.SchedulePage{}, err
		}
		name = snap.Name()
		slog.Debug("wrote snapshot", "path", snap.Path)
	}
	return internal.SchedulePage{
		Name:   name,
		Origin: pageURL,
		Year:   CalendarYear(name, now),
		HTML:   f.body,
		Fresh:  true,
	}, nil
}

func (s *stanfordTheatreScraper) snapshotPage(snap Snapshot, origin string, now time.Time) (internal.SchedulePage, error) {
	body, err := snap.Read()
	if err != nil {
		return internal.SchedulePage{}, err
	}
	return internal.SchedulePage{
		Name:   snap.Name(),
		Origin: origin,
		Year:   CalendarYear(snap.Name(), now),
		HTML:   body,
	}, nil
}

type fetchedPage struct {
	status       int
	body         []byte // UTF-8
	lastModified time.Time
}

func (f fetchedPage) notModified(since time.Time) bool {
	if f.status == http.StatusNotModified {
		return true
	}
	return !f.lastModified.IsZero() && !f.lastModified.After(since)
}

// fetch GETs pageURL, conditionally on since when it is set.
func (s *stanfordTheatreScraper) fetch(ctx context.Context, pageURL string, since time.Time) (fetchedPage, error) {
	if s.httpClient == nil {
		return s.fetchViaHeadlessBrowser(ctx, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fetchedPage{}, fmt.Errorf("failed to create request: %w", err)
	}
	if !since.IsZero() {
		req.Header.Set("If-Modified-Since", since.UTC().Format(http.TimeFormat))
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fetchedPage{}, fmt.Errorf("failed to get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return fetchedPage{status: resp.StatusCode}, nil
	default:
		return fetchedPage{}, fmt.Errorf("%w: GET %s: %s", errHTTPRequestFailed, pageURL, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchedPage{}, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	body, err := DecodeHTML(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return fetchedPage{}, err
	}
	lastModified, _ := http.ParseTime(resp.Header.Get("Last-Modified"))
	return fetchedPage{status: resp.StatusCode, body: body, lastModified: lastModified}, nil
}

// fetchViaHeadlessBrowser cannot send If-Modified-Since, but the page's
// Last-Modified still counts.
func (s *stanfordTheatreScraper) fetchViaHeadlessBrowser(ctx context.Context, pageURL string) (fetchedPage, error) {
	var doc browser.Document
	if err := s.headlessBrowser.WithPage(ctx, s.baseURL, s.headlessBrowser.FetchDocument(ctx, pageURL, &doc)); err != nil {
		return fetchedPage{}, err
	}
	lastModified, _ := http.ParseTime(doc.LastModified)
	return fetchedPage{status: http.StatusOK, body: []byte(doc.Body), lastModified: lastModified}, nil
}

// PullGolden saves the home page and every calendar page it links to under goldenDir.
func (s *stanfordTheatreScraper) PullGolden(ctx context.Context, goldenDir string) error {
	index, err := s.fetch(ctx, s.baseURL, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to fetch golden home page: %w", err)
	}
	links, err := calendarLinks(index.body)
	if err != nil {
		return err
	}
	files := map[string][]byte{"index.html": index.body}
	for _, link := range links {
		page, err := s.fetch(ctx, s.baseURL+link, time.Time{})
		if err != nil {
			return fmt.Errorf("failed to fetch golden %s: %w", link, err)
		}
		unescaped, err := url.PathUnescape(link)
		if err != nil {
			unescaped = link
		}
		files[filepath.FromSlash(unescaped)] = page.body
	}
	return writeGoldenFiles(goldenDir, files)
}

// MountGolden serves goldenDir as the site. Pages are served without a charset
// so the decoder has to sniff them like the live site.
func (s *stanfordTheatreScraper) MountGolden(_ context.Context, goldenDir string) (http.Handler, error) {
	if _, err := os.Stat(filepath.Join(goldenDir, "index.html")); err != nil {
		return nil, fmt.Errorf("golden home page: %w", err)
	}
	files := http.FileServer(http.Dir(goldenDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || strings.HasSuffix(r.URL.Path, ".html") {
			w.Header().Set("Content-Type", "text/html")
		}
		files.ServeHTTP(w, r)
	}), nil
}
