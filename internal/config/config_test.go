package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/drewfead/movies2ical/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Load_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ".", cfg.Paths.OutputDir)
	assert.Equal(t, internal.TheaterBaseURL, cfg.Theater.BaseURL)
	assert.Equal(t, "imdb_cache", filepath.Base(cfg.MetadataCacheDir()))
	assert.Equal(t, "stanford_movie_cache", filepath.Base(cfg.ScheduleCacheDir()))
}

func TestUnit_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[tmdb]
api_key = "abc123"

[notify17]
new_calendar_url = "https://hook.notify17.net/api/template/new"
error_url = "https://hook.notify17.net/api/template/err"

[paths]
cache_dir = "/var/cache/movies2ical"

[plist]
StandardOutPath = "/tmp/movies.out"
[plist.StartCalendarInterval]
Hour = 9
Minute = 30

[mystery]
ignored = true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.TMDB.APIKey)
	assert.Equal(t, "https://hook.notify17.net/api/template/new", cfg.Notify17.NewCalendarURL)
	assert.Equal(t, "https://hook.notify17.net/api/template/err", cfg.Notify17.ErrorURL)
	assert.Equal(t, "/var/cache/movies2ical", cfg.Paths.CacheDir)
	assert.Equal(t, ".", cfg.Paths.OutputDir, "unset keys keep defaults")
	assert.Equal(t, internal.TheaterBaseURL, cfg.Theater.BaseURL)
	assert.Equal(t, filepath.Join("/var/cache/movies2ical", "imdb_cache"), cfg.MetadataCacheDir())
	assert.Equal(t, "/tmp/movies.out", cfg.Plist["StandardOutPath"])
	assert.Equal(t, map[string]any{"Hour": int64(9), "Minute": int64(30)}, cfg.Plist["StartCalendarInterval"])
}

func TestUnit_Load_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tmdb\napi_key = "), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestUnit_Load_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[paths]\ncache_dir = \"~/movies\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "movies"), cfg.Paths.CacheDir)
}

func TestUnit_WriteExample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "movies2ical")
	require.NoError(t, WriteExample(dir))
	require.NoError(t, WriteExample(dir), "rewritten on every run")

	raw, err := os.ReadFile(filepath.Join(dir, "config.toml.example"))
	require.NoError(t, err)
	assert.Equal(t, Example, string(raw))

	var cfg Config
	_, err = toml.Decode(Example, &cfg)
	require.NoError(t, err, "example must stay valid TOML")
	assert.Equal(t, internal.TheaterBaseURL, cfg.Theater.BaseURL)
}
