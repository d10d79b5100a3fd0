// Package record reads input records and names them for error logs.
package record

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"als-transform/internal/subjectid"
)

// Input formats.
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
)

// StdinPath selects standard input.
const StdinPath = "-"

// DefaultIDFields are tried in order when naming a record.
var DefaultIDFields = []string{"subject_id", "subjectId", "dataset_id", "datasetId", "id"}

// Input is one source record and its position in the input.
type Input struct {
	Index int
	Value any
	// Keys lists the top-level members of an object Value in the order the
	// input declared them; nil when the order is unknown.
	Keys []string
}

// Options control how an input document is split into records.
type Options struct {
	// Format forces a format; empty infers it from the file extension.
	Format string
	// ItemsKey unwraps {"<key>": [...]} documents.
	ItemsKey string
	// MergeKeys are the join columns for directory input; empty uses
	// DefaultMergeKeys.
	MergeKeys []string

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}

	return o.Logger
}

// LoadError is returned when the input cannot be read or parsed. It is
// always fatal before any record is processed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load input %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FormatFor infers a format from a file name.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	default:
		return FormatJSON
	}
}

// Load reads records from path, or from stdin when path is "-". A directory
// is read with LoadDir.
func Load(path string, stdin io.Reader, opts Options) ([]Input, error) {
	var (
		data []byte
		err  error
	)

	if path != StdinPath {
		if fi, statErr := os.Stat(path); statErr == nil && fi.IsDir() {
			return LoadDir(path, opts)
		}
	}

	if path == StdinPath {
		if stdin == nil {
			return nil, &LoadError{Path: path, Err: errors.New("no standard input")}
		}

		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	format := opts.Format
	if format == "" {
		format = FormatFor(path)
	}

	inputs, err := Parse(data, format, opts.ItemsKey)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return inputs, nil
}

// Parse splits an in-memory document into records.
func Parse(data []byte, format, itemsKey string) ([]Input, error) {
	var (
		items []item
		err   error
	)

	switch format {
	case FormatJSON, "":
		items, err = parseJSON(data, itemsKey)
	case FormatNDJSON:
		items, err = parseNDJSON(data)
	case FormatCSV:
		items, err = parseCSV(data)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}

	if err != nil {
		return nil, err
	}

	inputs := make([]Input, len(items))
	for i, it := range items {
		inputs[i] = Input{Index: i, Value: it.value, Keys: it.keys}
	}

	return inputs, nil
}

type item struct {
	value any
	keys  []string
}

// parseJSON accepts an array of records, an object wrapping one under
// itemsKey, or any other single JSON value as one record.
func parseJSON(data []byte, itemsKey string) ([]item, error) {
	data = bytes.TrimSpace(data)

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch t := doc.(type) {
	case []any:
		if itemsKey != "" {
			return nil, fmt.Errorf("expected an object with %q, got an array", itemsKey)
		}

		return arrayItems(data, t)
	case map[string]any:
		if itemsKey == "" {
			return []item{{value: t, keys: objectKeys(data)}}, nil
		}

		items, ok := t[itemsKey]
		if !ok {
			return nil, fmt.Errorf("items key %q not found", itemsKey)
		}

		arr, ok := items.([]any)
		if !ok {
			return nil, fmt.Errorf("items key %q must hold an array", itemsKey)
		}

		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}

		return arrayItems(wrapper[itemsKey], arr)
	default:
		if itemsKey != "" {
			return nil, fmt.Errorf("expected an object with %q, got %T", itemsKey, doc)
		}

		return []item{{value: doc}}, nil
	}
}

// arrayItems pairs decoded elements with the key order of their raw form.
func arrayItems(data []byte, values []any) ([]item, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	out := make([]item, len(values))
	for i, v := range values {
		out[i] = item{value: v}
		if _, ok := v.(map[string]any); ok {
			out[i].keys = objectKeys(raws[i])
		}
	}

	return out, nil
}

// objectKeys returns the member names of a JSON object in document order,
// or nil when data is not an object.
func objectKeys(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	keys := []string{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}

		key, _ := tok.(string)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil
		}

		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}

	return keys
}

func parseNDJSON(data []byte) ([]item, error) {
	var out []item

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++

		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}

		var v any
		if err := json.Unmarshal(text, &v); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}

		it := item{value: v}
		if _, ok := v.(map[string]any); ok {
			it.keys = objectKeys(text)
		}

		out = append(out, it)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func parseCSV(data []byte) ([]item, error) {
	t, err := readTable(data)
	if err != nil {
		return nil, err
	}

	out := make([]item, len(t.rows))
	for i, row := range t.rows {
		out[i] = item{value: row, keys: t.columns}
	}

	return out, nil
}

// readTable maps each row onto the header; empty cells become null.
func readTable(data []byte) (*table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &table{rows: []map[string]any{}}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}

	for i, h := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF")
	}

	t := &table{columns: header, rows: []map[string]any{}}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}

		rec := make(map[string]any, len(header))
		for i, h := range header {
			if row[i] == "" {
				rec[h] = nil
			} else {
				rec[h] = row[i]
			}
		}

		t.rows = append(t.rows, rec)
	}

	return t, nil
}

// ID names a record for error logs: the first non-empty scalar among
// fields, else the 0-based index.
func ID(in Input, fields []string) string {
	if obj, ok := in.Value.(map[string]any); ok {
		for _, f := range fields {
			if s, ok := subjectid.Scalar(obj[f]); ok && s != "" {
				return s
			}
		}
	}

	return strconv.Itoa(in.Index)
}
