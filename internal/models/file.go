package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileCandidate describes one locally selected file awaiting validation.
// Candidates are built per validation call and not retained.
type FileCandidate struct {
	Name      string
	Path      string
	SizeBytes int64
	Extension string
}

// ValidationResult is the outcome of validating a whole file batch.
// The first offending file decides Reason and Err.
type ValidationResult struct {
	Accepted bool
	Reason   string
	Err      error
}

// UploadResult summarises a completed POST /upload call.
type UploadResult struct {
	Files    []string
	Accepted int
	Message  string
}

// CandidatesFromPaths stats each path and builds a candidate for it.
// Directories are rejected since the server only accepts sequence files.
func CandidatesFromPaths(paths []string) ([]FileCandidate, error) {
	candidates := make([]FileCandidate, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		name := filepath.Base(p)
		candidates = append(candidates, FileCandidate{
			Name:      name,
			Path:      p,
			SizeBytes: info.Size(),
			Extension: strings.ToLower(filepath.Ext(name)),
		})
	}
	return candidates, nil
}
