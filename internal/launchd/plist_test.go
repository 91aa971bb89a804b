package launchd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func TestUnit_Job_Overrides(t *testing.T) {
	job := Job(map[string]any{
		"StandardOutPath":       "/Users/me/Library/Logs/movies.out",
		"StartCalendarInterval": map[string]any{"Hour": int64(7)},
	})
	assert.Equal(t, Label, job["Label"])
	assert.Equal(t, "/Users/me/Library/Logs/movies.out", job["StandardOutPath"])
	assert.Equal(t, map[string]any{"Hour": int64(7)}, job["StartCalendarInterval"])

	assert.Equal(t, "/tmp/"+Label+".stdout", DefaultJob()["StandardOutPath"], "defaults untouched")
}

func TestUnit_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Write(path, map[string]any{"RunAtLoad": true}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<!DOCTYPE plist")

	var decoded struct {
		Label                 string         `plist:"Label"`
		ProgramArguments      []string       `plist:"ProgramArguments"`
		RunAtLoad             bool           `plist:"RunAtLoad"`
		StartCalendarInterval map[string]int `plist:"StartCalendarInterval"`
	}
	format, err := plist.Unmarshal(raw, &decoded)
	require.NoError(t, err)
	assert.Equal(t, plist.XMLFormat, format)
	assert.Equal(t, Label, decoded.Label)
	assert.Equal(t, []string{"movies2ical", "--notify"}, decoded.ProgramArguments)
	assert.True(t, decoded.RunAtLoad)
	assert.Equal(t, map[string]int{"Hour": 10, "Minute": 0}, decoded.StartCalendarInterval)
}
