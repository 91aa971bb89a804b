package enrichment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_DiskCached_WritesThenServes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "imdb_cache")
	inner := newFakeMetadata(romanHoliday)

	md, err := Chain(inner, DiskCached(dir, false)).Lookup(t.Context(), "tt0046250")
	require.NoError(t, err)
	assert.Equal(t, romanHoliday, md)
	assert.FileExists(t, filepath.Join(dir, "tt0046250.json"))

	md, err = Chain(inner, DiskCached(dir, true)).Lookup(t.Context(), "tt0046250")
	require.NoError(t, err)
	assert.Equal(t, romanHoliday, md)
	assert.Equal(t, 1, inner.Calls("tt0046250"))
}

func TestUnit_DiskCached_ReadOnlyMiss(t *testing.T) {
	inner := newFakeMetadata(romanHoliday)
	_, err := Chain(inner, DiskCached(t.TempDir(), true)).Lookup(t.Context(), "tt0046250")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotCached)
	assert.Zero(t, inner.Calls("tt0046250"))
}

func TestUnit_DiskCached_CorruptEntryRefetched(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tt0046250.json"), []byte("{not json"), 0o600))
	inner := newFakeMetadata(romanHoliday)

	md, err := Chain(inner, DiskCached(dir, false)).Lookup(t.Context(), "tt0046250")
	require.NoError(t, err)
	assert.Equal(t, "Roman Holiday", md.Title)
	assert.Equal(t, 1, inner.Calls("tt0046250"))

	cached, err := readCached(filepath.Join(dir, "tt0046250.json"))
	require.NoError(t, err)
	assert.Equal(t, romanHoliday, cached)
}

func TestUnit_DiskCached_InnerErrorNotCached(t *testing.T) {
	dir := t.TempDir()
	_, err := Chain(newFakeMetadata(), DiskCached(dir, false)).Lookup(t.Context(), "tt0000001")
	assert.ErrorIs(t, err, ErrFilmNotFound)
	assert.NoFileExists(t, filepath.Join(dir, "tt0000001.json"))
}

func TestUnit_DiskCached_RejectsPathLikeIDs(t *testing.T) {
	_, err := Chain(newFakeMetadata(), DiskCached(t.TempDir(), false)).Lookup(t.Context(), "../tt0046250")
	require.Error(t, err)
}
