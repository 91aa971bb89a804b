package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// WeekdaySet restricts a showtime to particular weekend days. The zero value
// means the showtime runs every day of its date range.
type WeekdaySet uint8

const (
	Saturday WeekdaySet = 1 << iota
	Sunday
)

const weekend = Saturday | Sunday

func (s WeekdaySet) Has(d WeekdaySet) bool { return s&d == d }

// Valid reports whether s only names days the schedule format can express.
func (s WeekdaySet) Valid() bool { return s&^weekend == 0 }

func (s WeekdaySet) String() string {
	var days []string
	if s.Has(Saturday) {
		days = append(days, "Saturday")
	}
	if s.Has(Sunday) {
		days = append(days, "Sunday")
	}
	if rest := s &^ weekend; rest != 0 {
		days = append(days, fmt.Sprintf("WeekdaySet(%#x)", uint8(rest)))
	}
	return strings.Join(days, "+")
}

// TimeToken is one showtime. Hour is already PM-adjusted (0-23).
type TimeToken struct {
	Hour        int
	Minute      int
	Restriction WeekdaySet
}

func (t TimeToken) String() string {
	s := fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	if t.Restriction != 0 {
		s += " " + t.Restriction.String()
	}
	return s
}

// pmHour applies the listing convention that every showtime is afternoon or
// evening: 1-11 are shifted by twelve hours, 12 stays noon, and 13-23 are
// taken as already on a 24 hour clock.
func pmHour(h int) (int, bool) {
	switch {
	case h >= 1 && h <= 11:
		return h + 12, true
	case h >= 12 && h <= 23:
		return h, true
	}
	return 0, false
}

func parseClock(hour, minute string) (TimeToken, error) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return TimeToken{}, fmt.Errorf("hour %q: %w", hour, err)
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return TimeToken{}, fmt.Errorf("minute %q: %w", minute, err)
	}
	ph, ok := pmHour(h)
	if !ok {
		return TimeToken{}, fmt.Errorf("hour %d out of range", h)
	}
	if m < 0 || m > 59 {
		return TimeToken{}, fmt.Errorf("minute %d out of range", m)
	}
	return TimeToken{Hour: ph, Minute: m}, nil
}

var (
	ticketSaleRE   = regexp.MustCompile(`(?is)ticket.+sale.*$`)
	clockRE        = regexp.MustCompile(`(\d+):(\d\d)`)
	nonClockRE     = regexp.MustCompile(`[^0-9:]+`)
	primaryClockRE = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseTimes reads the showtimes out of the text that follows a film link,
// e.g. "7:30 (plus 3:55 Sunday)". Primary times come first in the order they
// appear, followed by the extra times from parenthetical groups. Warnings
// carry no date; callers attach one.
func ParseTimes(text string) ([]TimeToken, []Warning) {
	var (
		tokens   []TimeToken
		extras   []TimeToken
		warnings []Warning
	)
	warn := func(format string, args ...any) {
		warnings = append(warnings, newWarning(WarningParse, CalendarDate{}, fmt.Sprintf(format, args...)))
	}

	text = ticketSaleRE.ReplaceAllString(text, "")
	outer, groups := ExtractParenthetical(text)

	for _, group := range groups {
		clocks := clockRE.FindAllStringSubmatch(group, -1)
		if len(clocks) == 0 {
			warn("could not parse parenthetical %q, ignoring it", CollapseWhitespace(group))
			continue
		}

		var restriction WeekdaySet
		lower := strings.ToLower(group)
		if strings.Contains(lower, "sat") {
			restriction |= Saturday
		}
		if strings.Contains(lower, "sun") {
			restriction |= Sunday
		}
		if restriction == 0 {
			warn("extra showtime in %q names no weekday, showing it every day", CollapseWhitespace(group))
		}

		for _, c := range clocks {
			tok, err := parseClock(c[1], c[2])
			if err != nil {
				warn("dropping extra showtime %q: %v", c[0], err)
				continue
			}
			tok.Restriction = restriction
			extras = append(extras, tok)
		}
	}

	for _, field := range strings.Fields(nonClockRE.ReplaceAllString(outer, " ")) {
		m := primaryClockRE.FindStringSubmatch(field)
		if m == nil {
			continue
		}
		tok, err := parseClock(m[1], m[2])
		if err != nil {
			warn("dropping showtime %q: %v", field, err)
			continue
		}
		tokens = append(tokens, tok)
	}

	return append(tokens, extras...), warnings
}
