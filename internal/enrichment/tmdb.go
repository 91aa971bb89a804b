package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/drewfead/movies2ical/internal"
	"github.com/drewfead/movies2ical/internal/httputil"
)

// ErrFilmNotFound means the metadata source has no film for an id.
var ErrFilmNotFound = errors.New("film not found")

const maxCast = 10

// auditTransport logs every request the TMDB client makes.
type auditTransport struct {
	base http.RoundTripper
}

func (t *auditTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	slog.Debug("tmdb request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)
	return resp, nil
}

type tmdbMetadata struct {
	client *tmdb.Client
}

type tmdbConfig struct {
	transport http.RoundTripper
	every     time.Duration
}

// TMDBOption configures the TMDB metadata provider.
type TMDBOption func(*tmdbConfig)

// WithTransport sends TMDB requests through rt instead of http.DefaultTransport.
func WithTransport(rt http.RoundTripper) TMDBOption {
	return func(c *tmdbConfig) {
		c.transport = rt
	}
}

// WithRequestSpacing sets the minimum time between TMDB requests; zero disables limiting.
func WithRequestSpacing(every time.Duration) TMDBOption {
	return func(c *tmdbConfig) {
		c.every = every
	}
}

// TMDB returns a MetadataProvider that resolves IMDb ids through The Movie
// Database. apiKey may be a v3 API key or a v4 read access token.
func TMDB(apiKey string, opts ...TMDBOption) (internal.MetadataProvider, error) {
	cfg := tmdbConfig{every: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey = strings.TrimSpace(apiKey)
	var (
		tmdbClient *tmdb.Client
		err        error
	)
	if strings.HasPrefix(apiKey, "eyJ") {
		tmdbClient, err = tmdb.InitV4(apiKey)
	} else {
		tmdbClient, err = tmdb.Init(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TMDB client: %w", err)
	}

	client := httputil.NewClient(&auditTransport{base: orDefault(cfg.transport)}, httputil.ClientOptions{
		Every:   cfg.every,
		Timeout: 30 * time.Second,
	})
	tmdbClient.SetClientConfig(*client)
	return &tmdbMetadata{client: tmdbClient}, nil
}

func orDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// Lookup finds the film by its IMDb id, then fetches its details and credits.
func (m *tmdbMetadata) Lookup(ctx context.Context, filmID string) (internal.FilmMetadata, error) {
	if err := ctx.Err(); err != nil {
		return internal.FilmMetadata{}, err
	}
	found, err := m.client.GetFindByID(filmID, map[string]string{
		"external_source": "imdb_id",
		"language":        "en-US",
	})
	if err != nil {
		return internal.FilmMetadata{}, fmt.Errorf("failed to find %s: %w", filmID, err)
	}
	if len(found.MovieResults) == 0 {
		return internal.FilmMetadata{}, fmt.Errorf("%w: %s", ErrFilmNotFound, filmID)
	}

	if err := ctx.Err(); err != nil {
		return internal.FilmMetadata{}, err
	}
	movieID := int(found.MovieResults[0].ID)
	details, err := m.client.GetMovieDetails(movieID, map[string]string{
		"append_to_response": "credits",
		"language":           "en-US",
	})
	if err != nil {
		return internal.FilmMetadata{}, fmt.Errorf("failed to get details for %s (tmdb %d): %w", filmID, movieID, err)
	}

	md := internal.FilmMetadata{
		ID:             filmID,
		Title:          details.Title,
		RuntimeMinutes: details.Runtime,
		Plot:           details.Overview,
		Year:           releaseYear(details.ReleaseDate),
		Rating:         float64(details.VoteAverage),
	}
	if details.MovieCreditsAppend != nil && details.Credits.MovieCredits != nil {
		for _, c := range details.Credits.MovieCredits.Crew {
			switch {
			case c.Job == "Director":
				md.Directors = appendUnique(md.Directors, c.Name)
			case c.Department == "Writing":
				md.Writers = appendUnique(md.Writers, c.Name)
			}
		}
		for _, c := range details.Credits.MovieCredits.Cast {
			if len(md.Cast) == maxCast {
				break
			}
			md.Cast = appendUnique(md.Cast, c.Name)
		}
	}
	return md, nil
}

// releaseYear reads the year of a "YYYY-MM-DD" release date; 0 when unknown.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func appendUnique(names []string, name string) []string {
	name = strings.TrimSpace(name)
	if name == "" || slices.Contains(names, name) {
		return names
	}
	return append(names, name)
}
