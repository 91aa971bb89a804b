package calendar

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/drewfead/movies2ical/internal/schedule"
)

const (
	maxPlotLen = 800
	maxCast    = 10
)

var (
	plotAuthorRE   = regexp.MustCompile(`::.*$`)
	trailingWordRE = regexp.MustCompile(`\s+\S*$`)
)

// Synopsis is the event description of a feature: link, plot, credits and
// the top of the cast list.
func Synopsis(f schedule.Feature) string {
	md := f.Metadata
	var b strings.Builder
	b.WriteString(f.Entry.MetadataRef)
	b.WriteString("\n\n")
	b.WriteString(shortPlot(md.Plot))
	b.WriteString("\n\n")
	if line := credits("Director", md.Directors); line != "" {
		b.WriteString(line + "\n")
	}
	if line := credits("Writer", md.Writers); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("\nCast:\n")
	for _, name := range md.Cast[:min(len(md.Cast), maxCast)] {
		b.WriteString(name + "\n")
	}
	return b.String()
}

// shortPlot drops an author credit ("text::author") and cuts long plots at
// a word boundary.
func shortPlot(plot string) string {
	plot = strings.TrimSpace(plotAuthorRE.ReplaceAllString(plot, ""))
	if utf8.RuneCountInString(plot) <= maxPlotLen {
		return plot
	}
	plot = string([]rune(plot)[:maxPlotLen])
	return trailingWordRE.ReplaceAllString(plot, "") + "..."
}

// credits renders "Director: A" or "Directors: A, B". Repeated names are listed once.
func credits(role string, names []string) string {
	var unique []string
	for _, n := range names {
		if !slices.Contains(unique, n) {
			unique = append(unique, n)
		}
	}
	switch len(unique) {
	case 0:
		return ""
	case 1:
		return role + ": " + unique[0]
	}
	return role + "s: " + strings.Join(unique, ", ")
}

// Report writes a plain text listing of features for reading in a terminal.
func Report(w io.Writer, features []schedule.Feature) error {
	var b strings.Builder
	for _, f := range features {
		b.WriteString(strings.Repeat("-", 78) + "\n")
		b.WriteString(f.Entry.FilmName + "\n")
		fmt.Fprintf(&b, "%d %s - %d %s\n",
			f.Entry.Dates.Start.Year, f.Entry.Dates.Start,
			f.Entry.Dates.End.Year, f.Entry.Dates.End)
		times := make([]string, len(f.Entry.Times))
		for i, t := range f.Entry.Times {
			times[i] = t.String()
		}
		b.WriteString("[" + strings.Join(times, ", ") + "]\n")
		fmt.Fprintf(&b, "Runtime: %d min\n\n", f.Metadata.RuntimeMinutes)
		b.WriteString(Synopsis(f) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
