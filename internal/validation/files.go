package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pfamflow/pfam-int/internal/models"
)

// Batch validation errors. Each maps to one warning shown to the user.
var (
	ErrEmptySelection   = errors.New("empty selection")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrOversizeFile     = errors.New("file too large")
	ErrEmptyFile        = errors.New("empty file")
)

// DefaultAllowedExtensions are the nucleotide FASTA suffixes the server accepts.
var DefaultAllowedExtensions = []string{".fna", ".fa", ".fasta"}

// DefaultMaxFileSize is the per-file upload limit (100 MiB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// ValidateFileSet checks a file batch before it is uploaded.
//
// Checks run in this order and stop at the first violation:
//   - the batch must not be empty
//   - then, file by file: extension, size over maxSize, zero size
//
// Extensions are matched as case-insensitive suffixes of the file name.
func ValidateFileSet(files []models.FileCandidate, allowed []string, maxSize int64) models.ValidationResult {
	if len(files) == 0 {
		return reject(ErrEmptySelection, "Please select at least one file.")
	}

	for _, f := range files {
		name := strings.ToLower(f.Name)

		if !hasAllowedSuffix(name, allowed) {
			return reject(ErrInvalidExtension,
				fmt.Sprintf("Invalid file type: %s. Allowed types: %s", f.Name, strings.Join(allowed, ", ")))
		}
		if f.SizeBytes > maxSize {
			return reject(ErrOversizeFile,
				fmt.Sprintf("File too large: %s. Maximum size: %s", f.Name, formatLimit(maxSize)))
		}
		if f.SizeBytes == 0 {
			return reject(ErrEmptyFile, fmt.Sprintf("Empty file detected: %s", f.Name))
		}
	}

	return models.ValidationResult{Accepted: true}
}

func hasAllowedSuffix(lowerName string, allowed []string) bool {
	for _, ext := range allowed {
		if strings.HasSuffix(lowerName, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func reject(err error, reason string) models.ValidationResult {
	return models.ValidationResult{Accepted: false, Reason: reason, Err: err}
}

// formatLimit renders a byte limit the way the upload page did ("100MB").
func formatLimit(n int64) string {
	const mib = 1024 * 1024
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
