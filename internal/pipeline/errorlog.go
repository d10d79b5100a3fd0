package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"als-transform/internal/diagnostic"
)

// Entry is one record's violations in the error log.
type Entry struct {
	RecordID   string                 `json:"recordId"`
	Violations []diagnostic.Violation `json:"violations"`
}

// ErrorLog collects entries in input order during classification. It is
// written once, after the run.
type ErrorLog struct {
	Entries []Entry
}

// Append adds an entry for a record.
func (l *ErrorLog) Append(recordID string, violations []diagnostic.Violation) {
	vs := make([]diagnostic.Violation, len(violations))
	copy(vs, violations)

	l.Entries = append(l.Entries, Entry{RecordID: recordID, Violations: vs})
}

// Len returns the number of entries.
func (l *ErrorLog) Len() int {
	return len(l.Entries)
}

// MarshalJSON encodes the log as a JSON array; an empty log is "[]".
func (l *ErrorLog) MarshalJSON() ([]byte, error) {
	if l == nil || l.Entries == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(l.Entries)
}

// WriteFile writes the log as indented JSON.
func (l *ErrorLog) WriteFile(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode error log: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write error log: %w", err)
	}

	return nil
}
