package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/drewfead/movies2ical/internal"
)

type ValidateOptions struct {
	// Location is the zone used to show times and dates in warnings.
	Location *time.Location
	// CorrectTimes shortens overlapping showings instead of only reporting them.
	CorrectTimes bool
}

// Validate runs every schedule check in order: empty schedule, name and year
// consistency, then overlaps. With CorrectTimes set the showings of features
// are shortened in place.
func Validate(features []Feature, opts ValidateOptions) []Warning {
	loc := opts.Location
	if loc == nil {
		loc = internal.TheaterTZ
	}
	warnings := CheckEmpty(features)
	warnings = append(warnings, CheckNameYear(features, loc)...)
	return append(warnings, CheckOverlaps(features, loc, opts.CorrectTimes)...)
}

// CheckEmpty reports a schedule that produced no showings at all.
func CheckEmpty(features []Feature) []Warning {
	for _, f := range features {
		if len(f.Showings) > 0 {
			return nil
		}
	}
	return []Warning{newWarning(WarningEmpty, CalendarDate{}, "no movies or showtimes found")}
}

var (
	scheduleYearRE   = regexp.MustCompile(`\(.*(19\d\d).*\)`)
	trailingParenRE  = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	leadingArticleRE = regexp.MustCompile(`^the\s+`)
)

const (
	unknownFilmYear = -1
	clockFormat     = "03:04PM MST"
)

func scheduleYear(name string) int {
	m := scheduleYearRE.FindStringSubmatch(name)
	if m == nil {
		return unknownFilmYear
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return unknownFilmYear
	}
	return year
}

func bareTitle(name string) string {
	return trailingParenRE.ReplaceAllString(NormalizeText(name), "")
}

func comparableTitle(title string) string {
	s := strings.ToLower(bareTitle(title))
	s = strings.ReplaceAll(s, `"`, "")
	return leadingArticleRE.ReplaceAllString(strings.TrimSpace(s), "")
}

// CheckNameYear compares each feature's schedule name with its metadata title
// and year. Warnings are dated by the feature's first showing.
func CheckNameYear(features []Feature, loc *time.Location) []Warning {
	var warnings []Warning
	for _, f := range features {
		if len(f.Showings) == 0 {
			continue
		}
		date := DateOf(f.Showings[0].Start.In(loc))
		name, title := f.Entry.FilmName, f.Metadata.Title

		if comparableTitle(name) != comparableTitle(title) {
			warnings = append(warnings, newWarning(WarningTitle, date, fmt.Sprintf(
				"inconsistent title:\n    schedule: %s\n    metadata: %s", bareTitle(name), title)))
		}
		if f.Metadata.Year == 0 {
			continue
		}
		if year := scheduleYear(name); year != f.Metadata.Year {
			warnings = append(warnings, newWarning(WarningYear, date, fmt.Sprintf(
				"inconsistent year:\n    schedule: %s (%d)\n    metadata: %s (%d)",
				bareTitle(name), year, title, f.Metadata.Year)))
		}
	}
	return warnings
}

type showingRef struct {
	feature, showing int
}

type occurrence struct {
	showingRef
	start, end time.Time
}

// CheckOverlaps reports every showing that starts while a different film is
// still playing. With correct set, a showing that is cut into is shortened to
// end one minute before the earliest showing that starts inside it (or right
// at that start when a minute would leave nothing). Corrections are computed
// from the original times, so the result does not depend on the order the
// pairs are visited in and no overlaps remain.
func CheckOverlaps(features []Feature, loc *time.Location, correct bool) []Warning {
	var occurrences []occurrence
	for fi, f := range features {
		for si, s := range f.Showings {
			for k := range max(s.Count, 1) {
				start, end := s.Occurrence(k)
				occurrences = append(occurrences, occurrence{showingRef{fi, si}, start, end})
			}
		}
	}

	var (
		warnings  []Warning
		shortened = map[showingRef]time.Duration{}
	)
	report := func(ending, starting occurrence) {
		endName := features[ending.feature].Entry.FilmName
		startName := features[starting.feature].Entry.FilmName
		startLocal := starting.start.In(loc)
		msg := fmt.Sprintf("movie time conflict between:\n    %s (Ends at %s)\n    %s (Starts at %s)",
			endName, ending.end.In(loc).Format(clockFormat),
			startName, startLocal.Format(clockFormat))
		warnings = append(warnings, newWarning(WarningOverlap, DateOf(startLocal), msg))

		if !correct {
			return
		}
		gap := starting.start.Sub(ending.start)
		d := gap - time.Minute
		if d <= 0 {
			d = gap
		}
		if cur, ok := shortened[ending.showingRef]; !ok || d < cur {
			shortened[ending.showingRef] = d
		}
	}

	for i, a := range occurrences {
		for _, b := range occurrences[i+1:] {
			if a.feature == b.feature {
				continue
			}
			if a.start.Before(b.start) && b.start.Before(a.end) {
				report(a, b)
			}
			if b.start.Before(a.start) && a.start.Before(b.end) {
				report(b, a)
			}
		}
	}

	for fi := range features {
		for si := range features[fi].Showings {
			d, ok := shortened[showingRef{fi, si}]
			s := &features[fi].Showings[si]
			if !ok || d >= s.Duration() {
				continue
			}
			s.End = s.Start.Add(d)
			warnings = append(warnings, newWarning(WarningOverlap, DateOf(s.Start.In(loc)), fmt.Sprintf(
				"autocorrected: %s now ends at %s", features[fi].Entry.FilmName,
				s.End.In(loc).Format(clockFormat))))
		}
	}
	return warnings
}
