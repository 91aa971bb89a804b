package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/drewfead/movies2ical/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Cached_Lookup(t *testing.T) {
	inner := newFakeMetadata(romanHoliday)
	provider := Chain(inner, Cached(8, time.Hour))

	for range 3 {
		md, err := provider.Lookup(t.Context(), "tt0046250")
		require.NoError(t, err)
		assert.Equal(t, romanHoliday, md)
	}
	assert.Equal(t, 1, inner.Calls("tt0046250"))
}

func TestUnit_Cached_FailuresNotCached(t *testing.T) {
	inner := newFakeMetadata()
	provider := Chain(inner, Cached(8, 0))

	for range 2 {
		_, err := provider.Lookup(t.Context(), "tt0000001")
		assert.ErrorIs(t, err, ErrFilmNotFound)
	}
	assert.Equal(t, 2, inner.Calls("tt0000001"))
}

func TestUnit_Cached_NilInner(t *testing.T) {
	assert.Nil(t, Cached(8, time.Minute)(nil))
}

type recordingMetadata struct {
	name  string
	order *[]string
	inner internal.MetadataProvider
}

func (r *recordingMetadata) Lookup(ctx context.Context, filmID string) (internal.FilmMetadata, error) {
	*r.order = append(*r.order, r.name)
	return r.inner.Lookup(ctx, filmID)
}

func TestUnit_Chain_FirstIsOutermost(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(inner internal.MetadataProvider) internal.MetadataProvider {
			return &recordingMetadata{name: name, order: &order, inner: inner}
		}
	}
	provider := Chain(newFakeMetadata(romanHoliday), record("outer"), record("inner"))

	_, err := provider.Lookup(t.Context(), "tt0046250")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}
