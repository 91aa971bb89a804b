package internal

import "context"

type MetadataProvider interface {
	// Lookup returns metadata for a film id such as "tt0046250".
	Lookup(ctx context.Context, filmID string) (FilmMetadata, error)
}
