package schedule

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CalendarDate is a day on the wall calendar, independent of any time zone.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

func Date(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// IsValid reports whether d names a real day (no "February 30").
func (d CalendarDate) IsValid() bool {
	return !d.IsZero() && DateOf(d.midnight()) == d
}

func (d CalendarDate) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d CalendarDate) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

func (d CalendarDate) Compare(o CalendarDate) int {
	return d.midnight().Compare(o.midnight())
}

// DaysUntil returns the number of days from d to o (negative when o is earlier).
func (d CalendarDate) DaysUntil(o CalendarDate) int {
	return int(o.midnight().Sub(d.midnight()).Hours() / 24)
}

// OnOrAfter returns the first date on or after d that falls on weekday w.
func (d CalendarDate) OnOrAfter(w time.Weekday) CalendarDate {
	return d.AddDays((int(w) - int(d.Weekday()) + 7) % 7)
}

// At returns the instant at hour:minute wall-clock time on d in loc.
func (d CalendarDate) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// String renders the date the way schedule warnings show it, e.g. "July 18".
func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d", d.Month, d.Day)
}

// DateRange is an inclusive run of days within one calendar year.
type DateRange struct {
	Start CalendarDate
	End   CalendarDate
}

// Days returns how many days the range covers, counting both ends.
func (r DateRange) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

func (r DateRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%s %d", r.Start, r.Start.Year)
	}
	return fmt.Sprintf("%s-%s %d", r.Start, r.End, r.End.Year)
}

// monthNames holds full names then three-letter abbreviations, so the month
// number of any entry is its index mod 12, plus one.
var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

func monthNumber(name string) (time.Month, bool) {
	i := slices.Index(monthNames, name)
	if i < 0 {
		return 0, false
	}
	return time.Month(i%12 + 1), true
}

var monthPattern = "(" + strings.Join(monthNames, "|") + ")"

// DateRule is one recognized way of writing a playdate range.
type DateRule struct {
	Name  string
	re    *regexp.Regexp
	build func(m []string, year int) (DateRange, bool)
}

// Match applies the rule to text. matched reports whether the rule's pattern
// was found at all; ok additionally requires the dates to form a valid range.
func (r DateRule) Match(text string, year int) (dr DateRange, matched, ok bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return DateRange{}, false, false
	}
	dr, ok = r.build(m, year)
	return dr, true, ok
}

var dateRules = []DateRule{
	{
		// July 18-19
		Name: "one-month-two-days",
		re:   regexp.MustCompile(monthPattern + `\s+(\d+)\s*-\s*(\d+)(?:$|\D)`),
		build: func(m []string, year int) (DateRange, bool) {
			return buildRange(year, m[1], m[2], m[1], m[3])
		},
	},
	{
		// August 31-September 1
		Name: "two-months",
		re:   regexp.MustCompile(monthPattern + `\s+(\d+)\s*-\s*` + monthPattern + `\s*(\d+)(?:$|\D)`),
		build: func(m []string, year int) (DateRange, bool) {
			return buildRange(year, m[1], m[2], m[3], m[4])
		},
	},
	{
		// December 24
		Name: "one-month-one-day",
		re:   regexp.MustCompile(monthPattern + `\s+(\d+)\s*(?:$|[^-\d])`),
		build: func(m []string, year int) (DateRange, bool) {
			return buildRange(year, m[1], m[2], m[1], m[2])
		},
	},
}

func buildRange(year int, startMonth, startDay, endMonth, endDay string) (DateRange, bool) {
	sm, ok1 := monthNumber(startMonth)
	em, ok2 := monthNumber(endMonth)
	sd, err1 := strconv.Atoi(startDay)
	ed, err2 := strconv.Atoi(endDay)
	if !ok1 || !ok2 || err1 != nil || err2 != nil {
		return DateRange{}, false
	}
	r := DateRange{Start: Date(year, sm, sd), End: Date(year, em, ed)}
	if !r.Start.IsValid() || !r.End.IsValid() || r.End.Compare(r.Start) < 0 {
		return DateRange{}, false
	}
	return r, true
}

// DateRules returns the playdate rules in the order ParseDateRange tries them.
func DateRules() []DateRule {
	return slices.Clone(dateRules)
}

// ParseDateRange finds a playdate range such as "July 18-19" in text. The
// first rule whose pattern is found decides the result; a found pattern that
// names an impossible or reversed range is not a match.
func ParseDateRange(text string, year int) (DateRange, bool) {
	for _, rule := range dateRules {
		dr, matched, ok := rule.Match(text, year)
		if matched {
			return dr, ok
		}
	}
	return DateRange{}, false
}
