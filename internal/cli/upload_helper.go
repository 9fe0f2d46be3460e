package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pfamflow/pfam-int/internal/alert"
	"github.com/pfamflow/pfam-int/internal/api"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/models"
	"github.com/pfamflow/pfam-int/internal/progress"
	"github.com/pfamflow/pfam-int/internal/validation"
)

// expandGlobPatterns expands glob patterns like *.fna, even when quoted.
// Returns a deduplicated list of absolute file paths.
func expandGlobPatterns(patterns []string) ([]string, error) {
	var expandedFiles []string
	seenFiles := make(map[string]bool)

	add := func(p string) error {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}
		if !seenFiles[absPath] {
			expandedFiles = append(expandedFiles, absPath)
			seenFiles[absPath] = true
		}
		return nil
	}

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[]") {
			if err := add(pattern); err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", pattern)
		}
		for _, match := range matches {
			if err := add(match); err != nil {
				return nil, err
			}
		}
	}

	return expandedFiles, nil
}

// selectFiles expands patterns and validates the batch against the
// configured limits. A rejected batch is reported as a danger notice on
// errOut and nothing is uploaded.
func selectFiles(patterns []string, client *api.Client, errOut io.Writer) ([]models.FileCandidate, error) {
	paths, err := expandGlobPatterns(patterns)
	if err != nil {
		return nil, err
	}
	candidates, err := models.CandidatesFromPaths(paths)
	if err != nil {
		return nil, err
	}

	limits := client.GetConfig().Upload
	result := validation.ValidateFileSet(candidates, limits.AllowedExtensions, limits.MaxFileSize)
	if !result.Accepted {
		fmt.Fprintln(errOut, alert.Format(alert.KindDanger, result.Reason))
		return nil, fmt.Errorf("file validation failed: %w", result.Err)
	}
	return candidates, nil
}

// executeUpload validates and uploads a batch with per-file progress bars.
func executeUpload(ctx context.Context, patterns []string, client *api.Client, logger *logging.Logger, errOut io.Writer) (*models.UploadResult, error) {
	candidates, err := selectFiles(patterns, client, errOut)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("files", len(candidates)).Msg("Uploading files")

	ui := progress.NewUploadUI(len(candidates))
	result, err := client.UploadFiles(ctx, candidates, ui.Track)
	ui.Finish(err)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	logger.Info().Int("files", result.Accepted).Msg(result.Message)
	return result, nil
}
