package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/drewfead/movies2ical/internal"
	"github.com/google/renameio/v2"
)

const (
	appName         = "movies2ical"
	fileName        = "config.toml"
	exampleFileName = "config.toml.example"

	metadataCacheSubdir = "imdb_cache"
	scheduleCacheSubdir = "stanford_movie_cache"
)

type Config struct {
	TMDB     TMDB           `toml:"tmdb"`
	Notify17 Notify17       `toml:"notify17"`
	Paths    Paths          `toml:"paths"`
	Theater  Theater        `toml:"theater"`
	Plist    map[string]any `toml:"plist"`
}

type TMDB struct {
	APIKey string `toml:"api_key"`
}

type Notify17 struct {
	NewCalendarURL string `toml:"new_calendar_url"`
	ErrorURL       string `toml:"error_url"`
}

type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	OutputDir string `toml:"output_dir"`
}

type Theater struct {
	BaseURL string `toml:"base_url"`
}

// Dir is where the config file lives: ~/.config/movies2ical.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return fileName
	}
	return filepath.Join(dir, fileName)
}

// Default is the configuration used when there is no config file.
func Default() Config {
	cacheDir := filepath.Join(".cache", appName)
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, cacheDir)
	}
	return Config{
		Paths: Paths{
			CacheDir:  cacheDir,
			OutputDir: ".",
		},
		Theater: Theater{BaseURL: internal.TheaterBaseURL},
		Plist:   map[string]any{},
	}
}

// Load reads the config file at path over the defaults. A missing file is not
// an error. Unknown keys are logged and ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		if len(key) > 0 && key[0] == "plist" {
			continue
		}
		slog.Warn("unknown config key", "path", path, "key", key.String())
	}
	if cfg.Plist == nil {
		cfg.Plist = map[string]any{}
	}
	cfg.Paths.CacheDir = expandHome(cfg.Paths.CacheDir)
	cfg.Paths.OutputDir = expandHome(cfg.Paths.OutputDir)
	return cfg, nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// MetadataCacheDir holds one JSON file per looked-up film.
func (c Config) MetadataCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, metadataCacheSubdir)
}

// ScheduleCacheDir holds the dated snapshots of the theater's calendar pages.
func (c Config) ScheduleCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, scheduleCacheSubdir)
}

// WriteExample (re)writes the annotated example config into dir.
func WriteExample(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	path := filepath.Join(dir, exampleFileName)
	if err := renameio.WriteFile(path, []byte(Example), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exampleFileName, err)
	}
	return nil
}

// Example is the annotated sample written next to the config file.
const Example = `# movies2ical configuration. Copy to config.toml and edit.

[tmdb]
# v3 API key or v4 read access token from https://www.themoviedb.org/settings/api
api_key = ""

[notify17]
# Notify17 webhook hit with calendar_name and calendar_list when calendars change
new_calendar_url = ""
# Notify17 webhook hit with error_text when a run fails
error_url = ""

[paths]
# snapshots of the theater's pages and film metadata are kept under here
cache_dir = "~/.cache/movies2ical"
# .ics files are written here
output_dir = "."

[theater]
base_url = "http://www.stanfordtheatre.org/"

[plist]
# any launchd key here overrides the generated plist, e.g.
# StandardOutPath = "/tmp/movies2ical.stdout"
# [plist.StartCalendarInterval]
# Hour = 9
# Minute = 30
`
