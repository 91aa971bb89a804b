package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	lru "github.com/hashicorp/golang-lru/v2"
)

var errBrowserClosed = errors.New("browser closed")

// PageStableTimeout is the timeout used when waiting for page stability or running eval scripts.
var PageStableTimeout = 30 * time.Second

// documentCacheSize bounds how many fetched documents one browser keeps.
const documentCacheSize = 32

// Document is a page fetched from inside the browser.
type Document struct {
	Body string `json:"body"`
	// LastModified is the raw Last-Modified response header, if any.
	LastModified string `json:"lastModified"`
}

// Interface runs a callback with a rod page loaded at a given URL and can fetch
// documents from inside that page.
type Interface interface {
	WithPage(ctx context.Context, url string, fn func(*rod.Page) error) error
	// FetchDocument returns a callback that fetches url from inside the page
	// and stores it in dest. Documents are cached per URL.
	// Use with WithPage: b.WithPage(ctx, baseURL, b.FetchDocument(ctx, url, &doc)).
	FetchDocument(ctx context.Context, url string, dest *Document) func(*rod.Page) error

	io.Closer
}

// headlessBrowser manages a single rod browser instance. A channel of capacity 1 serializes
// access: callers receive the browser, use it, then send it back so only one WithPage runs at a time.
type headlessBrowser struct {
	initOnce sync.Once
	initErr  error
	ch       chan *rod.Browser
	cache    *lru.Cache[string, Document]
}

// Headless returns a Browser that launches one headless chrome on first use and reuses it.
func Headless() Interface {
	cache, err := lru.New[string, Document](documentCacheSize)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return &headlessBrowser{
		ch:    make(chan *rod.Browser, 1),
		cache: cache,
	}
}

func (h *headlessBrowser) init() error {
	h.initOnce.Do(func() {
		u, err := launcher.New().Logger(newRodLauncherLogger()).Leakless(false).Launch()
		if err != nil {
			h.initErr = fmt.Errorf("launch browser: %w", err)
			close(h.ch)
			return
		}
		browser := rod.New().ControlURL(u)
		if err := browser.Connect(); err != nil {
			h.initErr = fmt.Errorf("connect to browser: %w", err)
			close(h.ch)
			return
		}
		h.ch <- browser
	})
	return h.initErr
}

// closeBrowser is swapped out in tests that never launch chrome.
var closeBrowser = (*rod.Browser).Close

// Close shuts the browser down. A browser that never started has nothing to
// close. Once closed, WithPage returns errBrowserClosed.
func (h *headlessBrowser) Close() error {
	h.initOnce.Do(func() { close(h.ch) })
	browser, ok := <-h.ch
	if !ok {
		return h.initErr
	}
	close(h.ch)
	return closeBrowser(browser)
}

// WithPage receives the shared browser from the channel, creates a page at url, runs fn, then sends the browser back.
// Serializes with other callers (one WithPage at a time). The page is closed when fn returns.
func (h *headlessBrowser) WithPage(ctx context.Context, url string, fn func(page *rod.Page) error) error {
	if err := h.init(); err != nil {
		return err
	}
	browser, ok := <-h.ch
	if !ok {
		return errBrowserClosed
	}
	defer func() { h.ch <- browser }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer page.MustClose()

	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := rod.Try(func() {
		page.Timeout(PageStableTimeout).MustWaitStable()
	}); err != nil {
		return fmt.Errorf("wait for page stable: %w", err)
	}

	return fn(page)
}

// FetchDocument returns a callback that fetches url in the page and stores it in dest.
func (h *headlessBrowser) FetchDocument(ctx context.Context, urlStr string, dest *Document) func(*rod.Page) error {
	return func(page *rod.Page) error {
		if doc, ok := h.cache.Get(urlStr); ok {
			slog.Debug("browser cache hit", "url", urlStr)
			*dest = doc
			return nil
		}
		result, err := page.Context(ctx).Timeout(PageStableTimeout).Eval(fetchDocumentScript, urlStr)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", urlStr, err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(result.Value.Str()), &doc); err != nil {
			return fmt.Errorf("decode %s: %w", urlStr, err)
		}
		h.cache.Add(urlStr, doc)
		*dest = doc
		return nil
	}
}

// fetchDocumentScript fetches url in the page context and returns the body and
// Last-Modified header as a JSON string. Legacy pages are decoded by the
// browser using their declared charset.
const fetchDocumentScript = `(url) => {
	return fetch(url).then(r => {
		if (!r.ok) throw new Error('HTTP ' + r.status);
		const lastModified = r.headers.get('Last-Modified') || '';
		return r.text().then(body => JSON.stringify({body, lastModified}));
	});
}`

// rodLauncherLogger is an io.Writer that forwards launcher output (e.g. download progress) to slog at debug level.
type rodLauncherLogger struct {
	buf []byte
}

func (w *rodLauncherLogger) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
		if line != "" {
			slog.Debug("rod launcher", "message", line)
		}
	}
	return len(p), nil
}

func newRodLauncherLogger() io.Writer {
	return &rodLauncherLogger{}
}
