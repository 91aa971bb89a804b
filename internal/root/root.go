package root

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/drewfead/movies2ical/internal"
	"github.com/drewfead/movies2ical/internal/browser"
	"github.com/drewfead/movies2ical/internal/config"
	"github.com/drewfead/movies2ical/internal/enrichment"
	"github.com/drewfead/movies2ical/internal/httputil"
	"github.com/drewfead/movies2ical/internal/launchd"
	"github.com/drewfead/movies2ical/internal/notify"
	"github.com/drewfead/movies2ical/internal/scraper"
	"github.com/drewfead/movies2ical/internal/services"
	"github.com/urfave/cli/v3"
)

const (
	appName   = "movies2ical"
	envPrefix = "MOVIES2ICAL_"

	metadataMemoryEntries = 64
	metadataMemoryTTL     = time.Hour
)

var errNoScheduleFiles = errors.New("--file needs at least one schedule file")

// RootOption configures the root command (e.g. for tests).
type RootOption func(*rootConfig)

type rootConfig struct {
	source   internal.ScheduleSource
	metadata internal.MetadataProvider
	notifier notify.Notifier
	now      func() time.Time
	stdout   io.Writer
	stderr   io.Writer

	// loaded in Before
	cfg config.Config
}

// WithSource replaces the theater site (or --file pages) as the schedule source.
// Use in tests to read from golden HTTP servers.
func WithSource(source internal.ScheduleSource) RootOption {
	return func(c *rootConfig) {
		c.source = source
	}
}

// WithMetadataProvider replaces TMDB. The disk and memory caches still apply.
func WithMetadataProvider(provider internal.MetadataProvider) RootOption {
	return func(c *rootConfig) {
		c.metadata = provider
	}
}

// WithNotifier replaces the Notify17 webhooks. It is still only used with --notify.
func WithNotifier(n notify.Notifier) RootOption {
	return func(c *rootConfig) {
		c.notifier = n
	}
}

// WithClock overrides time.Now (snapshot dates, default calendar year).
func WithClock(now func() time.Time) RootOption {
	return func(c *rootConfig) {
		c.now = now
	}
}

// WithOutput sets where reports and logs go instead of stdout and stderr.
func WithOutput(stdout, stderr io.Writer) RootOption {
	return func(c *rootConfig) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

func envVars(name string) cli.ValueSourceChain {
	return cli.EnvVars(envPrefix + name)
}

func Root(_ context.Context, opts ...RootOption) (*cli.Command, error) {
	rc := &rootConfig{
		now:    time.Now,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.now == nil {
		return nil, errors.New("clock must not be nil")
	}

	return &cli.Command{
		Name:      appName,
		Usage:     "turn the Stanford Theatre schedule into iCalendar files",
		ArgsUsage: "[schedule files...]",
		Writer:    rc.stdout,
		ErrWriter: rc.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "config",
				Usage:     "config file",
				Value:     config.DefaultPath(),
				TakesFile: true,
				Sources:   envVars("CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug logging and a text report of every schedule",
				Sources: envVars("VERBOSE"),
			},
			&cli.BoolFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "read schedule pages from the files given as arguments",
			},
			&cli.BoolFlag{
				Name:    "correct-times",
				Aliases: []string{"c"},
				Usage:   "shorten showings that run into the next film",
				Sources: envVars("CORRECT_TIMES"),
			},
			&cli.BoolFlag{
				Name:    "notify",
				Aliases: []string{"n"},
				Usage:   "post new calendars and failures to the configured Notify17 webhooks",
				Sources: envVars("NOTIFY"),
			},
			&cli.BoolFlag{
				Name:    "cache-only",
				Usage:   "never call TMDB; films missing from the metadata cache are skipped",
				Sources: envVars("CACHE_ONLY"),
			},
			&cli.BoolFlag{
				Name:    "browser",
				Usage:   "fetch schedule pages with a headless browser",
				Sources: envVars("BROWSER"),
			},
			&cli.StringFlag{
				Name:      "cache-dir",
				Usage:     "directory for schedule snapshots and film metadata",
				TakesFile: true,
				Sources:   envVars("CACHE_DIR"),
			},
			&cli.StringFlag{
				Name:      "out-dir",
				Usage:     "directory the calendars are written to",
				TakesFile: true,
				Sources:   envVars("OUT_DIR"),
			},
			&cli.StringFlag{
				Name:    "tmdb-api-key",
				Usage:   "TMDB API key or read access token",
				Sources: envVars("TMDB_API_KEY"),
			},
		},
		Before: rc.before,
		Action: rc.run,
		Commands: []*cli.Command{
			{
				Name:   "plist",
				Usage:  "write a launchd job that runs " + appName + " daily into the current directory",
				Action: rc.writePlist,
			},
		},
	}, nil
}

// before installs the logger and loads the config shared by every command.
func (rc *rootConfig) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(rc.stderr, &slog.HandlerOptions{Level: level})))

	path := cmd.String("config")
	if err := config.WriteExample(filepath.Dir(path)); err != nil {
		slog.Warn("failed to write example config", "error", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return ctx, err
	}
	if cmd.IsSet("cache-dir") {
		cfg.Paths.CacheDir = cmd.String("cache-dir")
	}
	if cmd.IsSet("out-dir") {
		cfg.Paths.OutputDir = cmd.String("out-dir")
	}
	if cmd.IsSet("tmdb-api-key") {
		cfg.TMDB.APIKey = cmd.String("tmdb-api-key")
	}
	rc.cfg = cfg
	return ctx, nil
}

func (rc *rootConfig) run(ctx context.Context, cmd *cli.Command) error {
	var notifier notify.Notifier
	if cmd.Bool("notify") {
		notifier = cmp.Or(rc.notifier, rc.notify17())
	}

	res, err := rc.generate(ctx, cmd)
	if err != nil {
		if notifier != nil && ctx.Err() == nil {
			if nerr := notifier.Failure(ctx, err); nerr != nil {
				slog.Warn("failed to send failure notification", "error", nerr)
			}
		}
		return err
	}
	if notifier != nil && len(res.New) > 0 {
		if err := notifier.NewCalendars(ctx, res.New); err != nil {
			slog.Warn("failed to send new calendar notification", "error", err)
		}
	}
	return nil
}

func (rc *rootConfig) generate(ctx context.Context, cmd *cli.Command) (services.Result, error) {
	source, done, err := rc.scheduleSource(cmd)
	if err != nil {
		return services.Result{}, err
	}
	defer done()

	metadata, err := rc.metadataProvider(cmd)
	if err != nil {
		return services.Result{}, err
	}

	opts := services.Options{
		OutputDir:    rc.cfg.Paths.OutputDir,
		CorrectTimes: cmd.Bool("correct-times"),
	}
	if cmd.Bool("verbose") {
		opts.Report = rc.stdout
	}
	return services.CalendarsService(source, metadata, opts).
		GenerateCalendars(ctx, internal.ListSchedulesRequest{Now: rc.now()})
}

// scheduleSource picks where schedule pages come from. The returned func
// releases anything the source holds on to.
func (rc *rootConfig) scheduleSource(cmd *cli.Command) (internal.ScheduleSource, func(), error) {
	noop := func() {}
	files := cmd.Args().Slice()
	switch {
	case cmd.Bool("file") && len(files) == 0:
		return nil, noop, errNoScheduleFiles
	case !cmd.Bool("file") && len(files) > 0:
		return nil, noop, fmt.Errorf("unexpected arguments %q (use --file to read schedule files)", files)
	case rc.source != nil:
		return rc.source, noop, nil
	case cmd.Bool("file"):
		return scraper.Files(files...), noop, nil
	}

	opts := []scraper.StanfordTheatreOption{
		scraper.WithBaseURL(rc.cfg.Theater.BaseURL),
		scraper.WithSnapshots(rc.cfg.ScheduleCacheDir()),
		scraper.WithClock(rc.now),
	}
	if !cmd.Bool("browser") {
		return scraper.StanfordTheatre(opts...), noop, nil
	}
	b := browser.Headless()
	closeBrowser := func() {
		if err := b.Close(); err != nil {
			slog.Warn("failed to close browser", "error", err)
		}
	}
	return scraper.StanfordTheatre(append(opts, scraper.WithBrowser(b))...), closeBrowser, nil
}

// metadataProvider is TMDB behind the on-disk and in-memory caches. Without an
// API key only films already in the disk cache can be resolved.
func (rc *rootConfig) metadataProvider(cmd *cli.Command) (internal.MetadataProvider, error) {
	cacheOnly := cmd.Bool("cache-only")
	inner := rc.metadata
	switch {
	case inner != nil || cacheOnly:
	case rc.cfg.TMDB.APIKey == "":
		slog.Warn("TMDB not configured, using cached metadata only", "reason", "no api_key")
	default:
		var err error
		if inner, err = enrichment.TMDB(rc.cfg.TMDB.APIKey); err != nil {
			return nil, fmt.Errorf("failed to set up TMDB: %w", err)
		}
	}
	return enrichment.Chain(inner,
		enrichment.Cached(metadataMemoryEntries, metadataMemoryTTL),
		enrichment.DiskCached(rc.cfg.MetadataCacheDir(), cacheOnly),
	), nil
}

func (rc *rootConfig) notify17() notify.Notifier {
	client := httputil.NewClient(nil, httputil.ClientOptions{
		CacheEntries: -1,
		Timeout:      30 * time.Second,
	})
	return notify.Notify17(rc.cfg.Notify17.NewCalendarURL, rc.cfg.Notify17.ErrorURL, client)
}

// writePlist puts the job in the current directory, or in --out-dir when that
// flag is given; the configured output dir is for calendars.
func (rc *rootConfig) writePlist(_ context.Context, cmd *cli.Command) error {
	dir := "."
	if cmd.IsSet("out-dir") {
		dir = cmd.String("out-dir")
	}
	path := filepath.Join(dir, launchd.FileName)
	if err := launchd.Write(path, rc.cfg.Plist); err != nil {
		return err
	}
	slog.Info("wrote launchd job", "path", path)
	return nil
}
