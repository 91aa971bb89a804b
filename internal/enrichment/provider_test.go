package enrichment

import (
	"context"
	"fmt"
	"sync"

	"github.com/drewfead/movies2ical/internal"
)

// fakeMetadata serves metadata from a map and counts lookups per film id.
type fakeMetadata struct {
	mu    sync.Mutex
	films map[string]internal.FilmMetadata
	calls map[string]int
}

func newFakeMetadata(films ...internal.FilmMetadata) *fakeMetadata {
	f := &fakeMetadata{films: map[string]internal.FilmMetadata{}, calls: map[string]int{}}
	for _, md := range films {
		f.films[md.ID] = md
	}
	return f
}

func (f *fakeMetadata) Lookup(_ context.Context, filmID string) (internal.FilmMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[filmID]++
	md, ok := f.films[filmID]
	if !ok {
		return internal.FilmMetadata{}, fmt.Errorf("%w: %s", ErrFilmNotFound, filmID)
	}
	return md, nil
}

func (f *fakeMetadata) Calls(filmID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[filmID]
}

var romanHoliday = internal.FilmMetadata{
	ID:             "tt0046250",
	Title:          "Roman Holiday",
	Directors:      []string{"William Wyler"},
	Writers:        []string{"Ian McLellan Hunter", "John Dighton", "Dalton Trumbo"},
	Cast:           []string{"Gregory Peck", "Audrey Hepburn", "Eddie Albert"},
	RuntimeMinutes: 118,
	Plot:           "A bored and sheltered princess escapes her guardians and falls in love with an American newsman in Rome.",
	Year:           1953,
	Rating:         8,
}
