package scraper

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeGoldenFiles writes each map entry under goldenDir, creating subdirectories as needed.
func writeGoldenFiles(goldenDir string, files map[string][]byte) error {
	for name, body := range files {
		path := filepath.Join(goldenDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create golden dir: %w", err)
		}
		if err := os.WriteFile(path, body, 0o600); err != nil {
			return fmt.Errorf("failed to write %s golden file: %w", name, err)
		}
	}
	return nil
}
