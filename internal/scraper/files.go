package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drewfead/movies2ical/internal"
)

type fileSource struct {
	paths []string
}

// Files reads schedule pages from local files instead of the theater's site.
// Every file counts as fresh.
func Files(paths ...string) internal.ScheduleSource {
	return &fileSource{paths: paths}
}

func (f *fileSource) Descriptor() string {
	return "files:" + strings.Join(f.paths, ",")
}

func (f *fileSource) ScrapeSchedules(_ context.Context, req internal.ListSchedulesRequest) (<-chan internal.SchedulePage, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	pages := make([]internal.SchedulePage, 0, len(f.paths))
	for _, p := range f.paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read schedule file: %w", err)
		}
		body, err := DecodeHTML(raw, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		name := filepath.Base(p)
		pages = append(pages, internal.SchedulePage{
			Name:   name,
			Origin: p,
			Year:   CalendarYear(name, now),
			HTML:   body,
			Fresh:  true,
		})
	}

	ch := make(chan internal.SchedulePage, len(pages))
	for _, page := range pages {
		ch <- page
	}
	close(ch)
	return ch, nil
}
