package extract

import (
	"context"
	"encoding/json"
	"os"

	"github.com/caselight/caselight/errors"
)

// FileSource reads a completed extraction run from a JSON file written by
// the upstream spaCy extraction script.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by an extraction JSON file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Extract parses the extraction file. A missing or malformed file is fatal,
// never retryable: re-reading the same bytes cannot succeed.
func (s *FileSource) Extract(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read extraction file %s", s.path)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrapf(err, "parse extraction file %s", s.path)
	}

	if len(result.Files) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "extraction file %s contains no files", s.path)
	}

	return &result, nil
}
