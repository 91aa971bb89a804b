package schedule

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScheduleEntry is one film booking read from a schedule cell: the film, where
// to look it up, the days it plays and its showtimes.
type ScheduleEntry struct {
	FilmName    string
	MetadataRef string
	Dates       DateRange
	Times       []TimeToken
}

var filmIDRE = regexp.MustCompile(`tt\d+`)

// FilmID returns the metadata identifier (e.g. "tt0046250") from the entry's
// link, or "" when the link does not carry one.
func (e ScheduleEntry) FilmID() string {
	path := e.MetadataRef
	if u, err := url.Parse(e.MetadataRef); err == nil {
		path = u.Path
	}
	return filmIDRE.FindString(path)
}

var (
	filmLinkRE    = regexp.MustCompile(`https?://[^/]*imdb\.`)
	nameYearRE    = regexp.MustCompile(`\(\D*\d{4}\D*\)\s*$`)
	leadingYearRE = regexp.MustCompile(`^\s*(\(\D*\d{4}\D*\))`)
)

const cellPreviewLen = 78

// ParseSchedule reads every schedule cell of a calendar page in document order.
// Only an unreadable document is an error; everything else is a warning.
func ParseSchedule(r io.Reader, year int) ([]ScheduleEntry, []Warning, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing schedule page: %w", err)
	}

	var (
		entries  []ScheduleEntry
		warnings []Warning
	)
	if n := doc.Find("table").Length(); n != 1 {
		warnings = append(warnings, newWarning(WarningParse, CalendarDate{},
			fmt.Sprintf("expected one schedule table, found %d", n)))
	}

	// Cells are looked up directly rather than through rows: the pages
	// sometimes close rows that were never opened.
	doc.Find("td").Each(func(_ int, cell *goquery.Selection) {
		if cell.Find("td").Length() > 0 {
			return
		}
		e, w := ExtractCell(cell, year)
		entries = append(entries, e...)
		warnings = append(warnings, w...)
	})
	return entries, warnings, nil
}

func isFilmLink(_ int, a *goquery.Selection) bool {
	return filmLinkRE.MatchString(a.AttrOr("href", ""))
}

// ExtractCell reads the film bookings out of one schedule cell. A cell without
// film links is not a schedule cell and yields nothing, silently.
func ExtractCell(cell *goquery.Selection, year int) ([]ScheduleEntry, []Warning) {
	links := cell.Find("a[href]").FilterFunction(isFilmLink)
	if links.Length() == 0 {
		return nil, nil
	}

	var warnings []Warning
	dates, ok := cellDates(cell, year)
	if !ok {
		preview := []rune(CollapseWhitespace(cell.Text()))
		if len(preview) > cellPreviewLen {
			preview = preview[:cellPreviewLen]
		}
		return nil, []Warning{newWarning(WarningMissingDate, CalendarDate{},
			fmt.Sprintf("could not find date in: %s", string(preview)))}
	}
	warn := func(format string, args ...any) {
		warnings = append(warnings, newWarning(WarningParse, dates.Start, fmt.Sprintf(format, args...)))
	}

	markup, err := cell.Html()
	if err != nil {
		warn("could not render cell: %v", err)
		return nil, warnings
	}
	spans := make([]string, 0, links.Length())
	links.Each(func(_ int, a *goquery.Selection) {
		span, err := goquery.OuterHtml(a)
		if err != nil {
			span = ""
		}
		spans = append(spans, span)
	})
	segments := splitOnSpans(markup, spans)

	var entries []ScheduleEntry
	links.Each(func(i int, a *goquery.Selection) {
		name := NormalizeText(a.Text())
		timeText := NormalizeText(StripTags(segments[i+1]))

		if !nameYearRE.MatchString(name) {
			if m := leadingYearRE.FindStringSubmatch(timeText); m != nil {
				name = name + " " + m[1]
				timeText = strings.TrimSpace(timeText[len(m[0]):])
			}
		}

		if !clockRE.MatchString(timeText) && i == links.Length()-1 {
			if next := followingCellText(cell); next != "" {
				warn("no showtimes after %q, using the next cell %q", name, next)
				timeText = next
			}
		}

		times, tw := ParseTimes(timeText)
		for _, w := range tw {
			w.Date = dates.Start
			warnings = append(warnings, w)
		}
		if len(times) == 0 {
			warn("no showtimes found for %q, skipping it", name)
			return
		}

		entries = append(entries, ScheduleEntry{
			FilmName:    name,
			MetadataRef: strings.TrimSpace(a.AttrOr("href", "")),
			Dates:       dates,
			Times:       times,
		})
	})
	return entries, warnings
}

func cellDates(cell *goquery.Selection, year int) (DateRange, bool) {
	text := NormalizeText(cell.Find("p.date").First().Text())
	if text == "" {
		return DateRange{}, false
	}
	return ParseDateRange(text, year)
}

// splitOnSpans cuts markup at each span in turn, giving len(spans)+1 pieces.
// Segment i+1 is the markup between span i and span i+1.
func splitOnSpans(markup string, spans []string) []string {
	segments := make([]string, 0, len(spans)+1)
	rest := markup
	for _, span := range spans {
		before, after, found := strings.Cut(rest, span)
		if span == "" || !found {
			segments = append(segments, "")
			continue
		}
		segments = append(segments, before)
		rest = after
	}
	return append(segments, rest)
}

// followingCellText returns the text of the cell after this one when that cell
// is not a schedule cell of its own. Some pages put the showtimes of a cell's
// last film in a cell by themselves.
func followingCellText(cell *goquery.Selection) string {
	next := cell.Next()
	if next.Length() == 0 || next.Find("p.date").Length() > 0 ||
		next.Find("a[href]").FilterFunction(isFilmLink).Length() > 0 {
		return ""
	}
	return NormalizeText(next.Text())
}
