package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/drewfead/movies2ical/internal"
	"github.com/google/renameio/v2"
)

// ErrNotCached means a read-only disk cache has no entry for a film.
var ErrNotCached = errors.New("film metadata not cached")

var cacheKeyRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DiskCached returns middleware that stores each lookup as <dir>/<film id>.json
// and serves later lookups from there. With readOnly set the wrapped provider
// is never called and a miss is ErrNotCached.
func DiskCached(dir string, readOnly bool) Middleware {
	return func(inner internal.MetadataProvider) internal.MetadataProvider {
		return &diskMetadata{dir: dir, readOnly: readOnly, inner: inner}
	}
}

type diskMetadata struct {
	dir      string
	readOnly bool
	inner    internal.MetadataProvider
}

func (d *diskMetadata) path(filmID string) (string, error) {
	if !cacheKeyRE.MatchString(filmID) {
		return "", fmt.Errorf("invalid film id %q", filmID)
	}
	return filepath.Join(d.dir, filmID+".json"), nil
}

func (d *diskMetadata) Lookup(ctx context.Context, filmID string) (internal.FilmMetadata, error) {
	path, err := d.path(filmID)
	if err != nil {
		return internal.FilmMetadata{}, err
	}

	md, err := readCached(path)
	switch {
	case err == nil:
		slog.Debug("metadata cache hit", "film_id", filmID)
		return md, nil
	case errors.Is(err, os.ErrNotExist):
	default:
		slog.Warn("ignoring unreadable metadata cache entry", "path", path, "error", err)
	}

	if d.readOnly || d.inner == nil {
		return internal.FilmMetadata{}, fmt.Errorf("%w: %s", ErrNotCached, filmID)
	}
	slog.Debug("fetching info", "film_id", filmID)
	md, err = d.inner.Lookup(ctx, filmID)
	if err != nil {
		return internal.FilmMetadata{}, err
	}
	if err := writeCached(path, md); err != nil {
		slog.Warn("failed to cache metadata", "film_id", filmID, "error", err)
	}
	return md, nil
}

func readCached(path string) (internal.FilmMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return internal.FilmMetadata{}, err
	}
	var md internal.FilmMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return internal.FilmMetadata{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return md, nil
}

func writeCached(path string, md internal.FilmMetadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create metadata cache dir: %w", err)
	}
	raw, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(raw, '\n'), 0o644)
}
