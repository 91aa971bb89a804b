package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/drewfead/movies2ical/internal"
)

var (
	// ErrInvalidRestriction means a showtime was restricted to a day other than
	// Saturday or Sunday. ParseTimes never produces one.
	ErrInvalidRestriction = errors.New("invalid weekday restriction")
	ErrUnknownRuntime     = errors.New("unknown runtime")
)

// Showing is a showtime pinned to real instants. It repeats daily Count times
// starting at Start.
type Showing struct {
	Start time.Time
	End   time.Time
	Count int
}

func (s Showing) Duration() time.Duration { return s.End.Sub(s.Start) }

// Occurrence returns the i-th daily repetition of s (0-based).
func (s Showing) Occurrence(i int) (start, end time.Time) {
	return s.Start.AddDate(0, 0, i), s.End.AddDate(0, 0, i)
}

// Feature is one film booking with its metadata and expanded showings.
type Feature struct {
	Entry    ScheduleEntry
	Metadata internal.FilmMetadata
	Showings []Showing
}

// Expand pins each of the entry's showtimes to UTC instants. Times are read as
// wall-clock times in loc. A showtime with an invalid restriction is left out
// and reported in the joined error; the rest still expand.
func Expand(entry ScheduleEntry, runtime time.Duration, loc *time.Location) ([]Showing, error) {
	if runtime <= 0 {
		return nil, fmt.Errorf("%w for %q", ErrUnknownRuntime, entry.FilmName)
	}
	if loc == nil {
		loc = internal.TheaterTZ
	}

	var errs []error
	showings := make([]Showing, 0, len(entry.Times))
	for _, tok := range entry.Times {
		day, count, err := firstDay(entry.Dates, tok.Restriction)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q at %s: %w", entry.FilmName, tok, err))
			continue
		}
		start := day.At(tok.Hour, tok.Minute, loc).UTC()
		showings = append(showings, Showing{
			Start: start,
			End:   start.Add(runtime),
			Count: count,
		})
	}
	return showings, errors.Join(errs...)
}

// firstDay returns the day a showtime first plays and how many consecutive
// days it repeats.
func firstDay(dates DateRange, r WeekdaySet) (CalendarDate, int, error) {
	switch {
	case !r.Valid():
		return CalendarDate{}, 0, fmt.Errorf("%w: %s", ErrInvalidRestriction, r)
	case r == 0:
		return dates.Start, dates.Days(), nil
	case r.Has(Saturday | Sunday):
		return dates.Start.OnOrAfter(time.Saturday), 2, nil
	case r.Has(Saturday):
		return dates.Start.OnOrAfter(time.Saturday), 1, nil
	default:
		return dates.Start.OnOrAfter(time.Sunday), 1, nil
	}
}
