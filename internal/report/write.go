package report

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	StructuredFile = "report.json"
	NarrativeFile  = "report.md"
)

// WriteArtifacts creates dir if needed and writes both documents into it.
func WriteArtifacts(dir string, structured, narrative []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, StructuredFile), structured, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", StructuredFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, NarrativeFile), narrative, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", NarrativeFile, err)
	}
	return nil
}
