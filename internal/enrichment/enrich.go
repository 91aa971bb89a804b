package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drewfead/movies2ical/internal"
	"github.com/drewfead/movies2ical/internal/schedule"
)

// Enrich looks up every entry's film and expands its showtimes into a Feature.
// An entry whose metadata is unavailable is left out with a warning, as is a
// showtime that cannot be expanded. A cancelled ctx stops the lookups and is
// the only error.
func Enrich(
	ctx context.Context,
	entries []schedule.ScheduleEntry,
	provider internal.MetadataProvider,
	loc *time.Location,
) ([]schedule.Feature, []schedule.Warning, error) {
	var (
		features []schedule.Feature
		warnings []schedule.Warning
	)
	warn := func(kind schedule.WarningKind, e schedule.ScheduleEntry, format string, args ...any) {
		warnings = append(warnings, schedule.Warning{
			Kind:    kind,
			Date:    e.Dates.Start,
			Message: fmt.Sprintf(format, args...),
		})
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return features, warnings, err
		}
		filmID := entry.FilmID()
		if filmID == "" {
			warn(schedule.WarningMetadata, entry, "no film id in link %q for %q, skipping it", entry.MetadataRef, entry.FilmName)
			continue
		}

		md, err := provider.Lookup(ctx, filmID)
		if err != nil {
			if ctx.Err() != nil {
				return features, warnings, ctx.Err()
			}
			warn(schedule.WarningMetadata, entry, "could not get info for %s (%s), skipping it: %v", entry.FilmName, filmID, err)
			continue
		}

		showings, err := schedule.Expand(entry, md.Runtime(), loc)
		switch {
		case errors.Is(err, schedule.ErrUnknownRuntime):
			warn(schedule.WarningMetadata, entry, "no runtime known for %s (%s), skipping it", entry.FilmName, filmID)
			continue
		case errors.Is(err, schedule.ErrInvalidRestriction):
			slog.Error("dropping showtimes", "film", entry.FilmName, "error", err)
			warn(schedule.WarningInvariant, entry, "dropped showtimes: %v", err)
		case err != nil:
			warn(schedule.WarningParse, entry, "could not expand showtimes: %v", err)
		}
		if len(showings) == 0 {
			continue
		}

		slog.Debug("enriched entry",
			"film", entry.FilmName,
			"film_id", filmID,
			"title", md.Title,
			"runtime_minutes", md.RuntimeMinutes,
			"showings", len(showings),
		)
		features = append(features, schedule.Feature{
			Entry:    entry,
			Metadata: md,
			Showings: showings,
		})
	}
	return features, warnings, nil
}
