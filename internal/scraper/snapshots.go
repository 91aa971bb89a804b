package scraper

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

const snapshotDateLayout = "20060102"

// Snapshots keeps dated copies of schedule pages in one directory, named
// <stem>_YYYYMMDD<ext> after the day they were fetched.
type Snapshots struct {
	dir string
	loc *time.Location
}

func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir, loc: time.Local}
}

// Snapshot is one stored copy of a page.
type Snapshot struct {
	Path string
	// Date is local midnight of the day the copy was taken.
	Date time.Time
}

func (s Snapshot) Name() string { return filepath.Base(s.Path) }

func (s Snapshot) Read() ([]byte, error) {
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return body, nil
}

// SnapshotName returns the file name a copy of page taken on day is stored under.
func SnapshotName(page string, day time.Time) string {
	ext := filepath.Ext(page)
	return strings.TrimSuffix(page, ext) + "_" + day.Format(snapshotDateLayout) + ext
}

var snapshotDateRE = regexp.MustCompile(`_(\d{8})$`)

// Latest returns the most recent snapshot of page, if any.
func (s *Snapshots) Latest(page string) (Snapshot, bool, error) {
	ext := filepath.Ext(page)
	stem := strings.TrimSuffix(page, ext)
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var (
		latest Snapshot
		found  bool
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		rest, ok := strings.CutPrefix(strings.TrimSuffix(name, ext), stem)
		if !ok {
			continue
		}
		m := snapshotDateRE.FindStringSubmatch(rest)
		if m == nil || len(rest) != len(m[0]) {
			continue
		}
		date, err := time.ParseInLocation(snapshotDateLayout, m[1], s.loc)
		if err != nil {
			continue
		}
		if !found || date.After(latest.Date) {
			latest = Snapshot{Path: filepath.Join(s.dir, name), Date: date}
			found = true
		}
	}
	return latest, found, nil
}

// Write stores body as the snapshot of page taken on day, atomically.
func (s *Snapshots) Write(page string, day time.Time, body []byte) (Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	day = day.In(s.loc)
	path := filepath.Join(s.dir, SnapshotName(page, day))
	if err := renameio.WriteFile(path, body, 0o644); err != nil {
		return Snapshot{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	y, m, d := day.Date()
	return Snapshot{Path: path, Date: time.Date(y, m, d, 0, 0, 0, 0, s.loc)}, nil
}

// Unchanged reports whether body matches the stored snapshot byte for byte.
func (s Snapshot) Unchanged(body []byte) bool {
	old, err := s.Read()
	return err == nil && bytes.Equal(old, body)
}

var calendarYearRE = regexp.MustCompile(`_(20\d\d)(\d{4})?($|\.)`)

// CalendarYear returns the year a schedule page belongs to. The pages rarely
// say; snapshot and test file names carry it as _YYYY or _YYYYMMDD, and
// otherwise the page is assumed to be for the current year.
func CalendarYear(name string, now time.Time) int {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if m := calendarYearRE.FindStringSubmatch(stem); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			return year
		}
	}
	return now.Year()
}
