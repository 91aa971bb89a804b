package launchd

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"howett.net/plist"
)

const (
	Label    = "local.CheckStanfordMovies"
	FileName = Label + ".plist"
)

// DefaultJob is the launchd job that runs movies2ical once a day and notifies
// about new calendars.
func DefaultJob() map[string]any {
	return map[string]any{
		"Label":            Label,
		"ProgramArguments": []string{"movies2ical", "--notify"},
		"StartCalendarInterval": map[string]any{
			"Hour":   10,
			"Minute": 0,
		},
		"StandardOutPath":   "/tmp/" + Label + ".stdout",
		"StandardErrorPath": "/tmp/" + Label + ".stderr",
		"RunAtLoad":         false,
	}
}

// Job returns DefaultJob with overrides applied. Overrides replace whole
// top-level keys.
func Job(overrides map[string]any) map[string]any {
	job := DefaultJob()
	maps.Copy(job, overrides)
	return job
}

// Write stores the job built from overrides as an XML property list at path.
func Write(path string, overrides map[string]any) error {
	raw, err := plist.MarshalIndent(Job(overrides), plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("failed to encode launchd job: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create plist dir: %w", err)
	}
	if err := renameio.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
