package internal

import (
	"time"
	_ "time/tzdata" // theater zone must resolve on hosts without a zoneinfo database
)

const (
	TheaterName     = "Stanford Theatre"
	TheaterLocation = "221 University Ave, Palo Alto, CA (Stanford Theatre)"
	TheaterBaseURL  = "http://www.stanfordtheatre.org/"

	theaterTimezoneCode = "America/Los_Angeles"
)

// TheaterTZ is the zone every published showtime is a wall-clock time in.
var TheaterTZ *time.Location

func init() {
	var err error
	TheaterTZ, err = time.LoadLocation(theaterTimezoneCode)
	if err != nil {
		TheaterTZ = time.UTC
	}
}

// FilmMetadata is what the metadata source knows about one film.
type FilmMetadata struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Directors      []string `json:"directors"`
	Writers        []string `json:"writers"`
	Cast           []string `json:"cast"`
	RuntimeMinutes int      `json:"runtime_minutes"`
	Plot           string   `json:"plot"`
	Year           int      `json:"year"`
	Rating         float64  `json:"rating"`
}

// Runtime returns the film length, or zero when the source did not report one.
func (m FilmMetadata) Runtime() time.Duration {
	if m.RuntimeMinutes <= 0 {
		return 0
	}
	return time.Duration(m.RuntimeMinutes) * time.Minute
}

// SchedulePage is one published schedule page, either fetched or read from a snapshot.
type SchedulePage struct {
	Name   string `json:"name"`   // file name of the page, e.g. "calendar_20240701.html"
	Origin string `json:"origin"` // URL or path the HTML came from
	Year   int    `json:"year"`
	HTML   []byte `json:"-"`
	// Fresh is true when the page is new or changed since the previous snapshot.
	Fresh bool `json:"fresh"`
}

type ListSchedulesRequest struct {
	// Now anchors snapshot dates and the default calendar year; zero means time.Now().
	Now time.Time `json:"now"`
}
