package calendar

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/drewfead/movies2ical/internal"
	"github.com/drewfead/movies2ical/internal/schedule"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

const (
	ProductID = "-//Stanford Theatre Calendar//movies2ical//"
	uidDomain = "movies2ical.stanfordtheatre"
	uidLayout = "20060102T150405Z"
)

// uidNamespace scopes event UIDs so the same showing always gets the same UID
// and calendar clients update events in place on re-import.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(uidDomain))

type Options struct {
	// Name is shown by clients as the calendar title; empty leaves it unset.
	Name string
	// Location is every event's location; empty means the theater's address.
	Location string
}

// EventUID identifies the showing of ref starting at start.
func EventUID(start time.Time, ref string) string {
	stamp := start.UTC().Format(uidLayout)
	return uuid.NewSHA1(uidNamespace, []byte(stamp+" "+ref)).String() + "@" + uidDomain
}

// Build returns a calendar with one event per showing. A showing that repeats
// on consecutive days becomes one event with a daily recurrence rule.
func Build(features []schedule.Feature, opts Options) *ics.Calendar {
	location := opts.Location
	if location == "" {
		location = internal.TheaterLocation
	}

	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, f := range features {
		description := Synopsis(f)
		for _, s := range f.Showings {
			event := cal.AddEvent(EventUID(s.Start, f.Entry.MetadataRef))
			event.SetStartAt(s.Start)
			event.SetEndAt(s.End)
			event.SetDtStampTime(s.Start)
			if s.Count > 1 {
				event.AddRrule(fmt.Sprintf("FREQ=DAILY;COUNT=%d", s.Count))
			}
			event.SetSummary(f.Entry.FilmName)
			if f.Entry.MetadataRef != "" {
				event.SetURL(f.Entry.MetadataRef)
			}
			event.SetDescription(description)
			event.SetLocation(location)
		}
	}
	return cal
}

// WriteFile replaces path with the serialized calendar in one step, so a
// subscribed client never sees a half-written file.
func WriteFile(path string, cal *ics.Calendar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending calendar file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			slog.Debug("cleanup pending calendar file", "path", path, "error", err)
		}
	}()

	if err := cal.SerializeTo(pendingFile); err != nil {
		return fmt.Errorf("write calendar data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace calendar file: %w", err)
	}
	return nil
}
