package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON writes each batch as an indented JSON array.
type JSON struct {
	path   string
	stdout io.Writer
}

// NewJSON returns a sink writing to path, or to stdout when path is empty
// or "-".
func NewJSON(path string, stdout io.Writer) *JSON {
	if path == "-" {
		path = ""
	}

	return &JSON{path: path, stdout: stdout}
}

func (s *JSON) Write(_ context.Context, b Batch) error {
	records := b.Records
	if records == nil {
		records = []any{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	data = append(data, '\n')

	if s.path == "" {
		if _, err := s.stdout.Write(data); err != nil {
			return fmt.Errorf("write records: %w", err)
		}

		return nil
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	return nil
}

func (s *JSON) Close() error {
	return nil
}
