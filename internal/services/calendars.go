package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/drewfead/movies2ical/internal"
	"github.com/drewfead/movies2ical/internal/calendar"
	"github.com/drewfead/movies2ical/internal/enrichment"
	"github.com/drewfead/movies2ical/internal/schedule"
)

type Options struct {
	// OutputDir receives one <page stem>.ics per schedule page.
	OutputDir string
	// Location is the theater's zone; nil means internal.TheaterTZ.
	Location *time.Location
	// CorrectTimes shortens showings that run into the next film.
	CorrectTimes bool
	// Report, when set, receives a text listing of every page's features.
	Report io.Writer
}

// Result describes what a run wrote.
type Result struct {
	// Calendars are the paths of every calendar written.
	Calendars []string
	// New are the calendars written from new or changed schedule pages.
	New      []string
	Warnings int
}

// CalendarGenerator writes calendars for the schedules of one source.
type CalendarGenerator interface {
	GenerateCalendars(ctx context.Context, req internal.ListSchedulesRequest) (Result, error)
}

type calendarsService struct {
	source   internal.ScheduleSource
	metadata internal.MetadataProvider
	opts     Options
}

// CalendarsService turns every schedule page of source into an iCalendar file.
func CalendarsService(source internal.ScheduleSource, metadata internal.MetadataProvider, opts Options) CalendarGenerator {
	if opts.Location == nil {
		opts.Location = internal.TheaterTZ
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &calendarsService{source: source, metadata: metadata, opts: opts}
}

// GenerateCalendars reads, checks and writes every page the source yields.
// Problems with the schedules are logged as warnings; only failures to read
// the source or write a calendar stop the run.
func (s *calendarsService) GenerateCalendars(ctx context.Context, req internal.ListSchedulesRequest) (Result, error) {
	pages, err := s.source.ScrapeSchedules(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get schedules from %s: %w", s.source.Descriptor(), err)
	}

	var res Result
	for page := range pages {
		path, warnings, err := s.generateCalendar(ctx, page)
		res.Warnings += warnings
		if err != nil {
			drain(pages)
			return res, err
		}
		if path == "" {
			continue
		}
		res.Calendars = append(res.Calendars, path)
		if page.Fresh {
			res.New = append(res.New, path)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	slog.Info("finished", "calendars", len(res.Calendars), "new", len(res.New), "warnings", res.Warnings)
	return res, nil
}

func drain(pages <-chan internal.SchedulePage) {
	go func() {
		for range pages {
		}
	}()
}

// generateCalendar writes the calendar for one page and returns its path, or
// "" when the page had nothing to put in one.
func (s *calendarsService) generateCalendar(ctx context.Context, page internal.SchedulePage) (string, int, error) {
	logger := slog.With("page", page.Name)
	logger.Info("reading schedule", "origin", page.Origin, "year", page.Year, "fresh", page.Fresh)

	entries, parseWarnings, err := schedule.ParseSchedule(bytes.NewReader(page.HTML), page.Year)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", page.Name, err)
	}
	features, enrichWarnings, err := enrichment.Enrich(ctx, entries, s.metadata, s.opts.Location)
	if err != nil {
		return "", 0, err
	}
	checkWarnings := schedule.Validate(features, schedule.ValidateOptions{
		Location:     s.opts.Location,
		CorrectTimes: s.opts.CorrectTimes,
	})

	var count int
	for _, warnings := range [][]schedule.Warning{parseWarnings, enrichWarnings, checkWarnings} {
		for _, w := range warnings {
			logger.Warn(w.String(), "kind", w.Kind.String())
		}
		count += len(warnings)
	}

	if s.opts.Report != nil {
		if err := calendar.Report(s.opts.Report, features); err != nil {
			logger.Warn("failed to write report", "error", err)
		}
	}
	if len(features) == 0 {
		logger.Info("no showings, not writing a calendar")
		return "", count, nil
	}

	path := filepath.Join(s.opts.OutputDir, calendarFileName(page.Name))
	cal := calendar.Build(features, calendar.Options{Name: internal.TheaterName})
	if err := calendar.WriteFile(path, cal); err != nil {
		return "", count, fmt.Errorf("failed to write calendar for %s: %w", page.Name, err)
	}
	logger.Info("wrote calendar", "path", path, "films", len(features), "events", len(cal.Events()))
	return path, count, nil
}

// calendarFileName names a page's calendar after the page: index2_20130701.html
// becomes index2_20130701.ics.
func calendarFileName(pageName string) string {
	base := filepath.Base(pageName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".ics"
}
