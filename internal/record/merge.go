package record

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// DefaultMergeKeys are the columns CSV exports of one study share.
var DefaultMergeKeys = []string{"SubjectUID", "Visit", "Date"}

// table is one parsed CSV file.
type table struct {
	name    string
	columns []string
	rows    []map[string]any
}

// LoadDir reads every *.csv file in dir and outer-joins them into one
// record per merged row.
//
// The base table is the first file whose name contains "subject", else the
// file with the most rows. Every other file, in name order, is joined on the
// merge keys both sides carry; files sharing none are skipped. A non-key
// column already present is renamed to <column>_<file>. Unmatched rows of
// either side are kept with the missing columns set to null.
func LoadDir(dir string, opts Options) ([]Input, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}

	if len(paths) == 0 {
		return nil, &LoadError{Path: dir, Err: errors.New("no CSV files found")}
	}

	logger := opts.logger().Named("record")

	tables := make([]*table, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}

		t, err := readTable(data)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}

		t.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		tables = append(tables, t)

		logger.Debug("csv file loaded", zap.String("file", filepath.Base(path)), zap.Int("rows", len(t.rows)))
	}

	keys := opts.MergeKeys
	if len(keys) == 0 {
		keys = DefaultMergeKeys
	}

	base := baseTable(tables)
	merged := base

	for _, t := range tables {
		if t == base {
			continue
		}

		on := sharedColumns(keys, merged.columns, t.columns)
		if len(on) == 0 {
			logger.Warn("csv file not merged: no shared key columns",
				zap.String("file", t.name), zap.Strings("keys", keys))

			continue
		}

		logger.Debug("merging csv file", zap.String("file", t.name), zap.Strings("on", on))

		merged = outerJoin(merged, t, on)
	}

	logger.Info("csv directory merged",
		zap.String("dir", dir),
		zap.String("base", base.name),
		zap.Int("rows", len(merged.rows)),
		zap.Int("columns", len(merged.columns)),
	)

	inputs := make([]Input, len(merged.rows))
	for i, row := range merged.rows {
		inputs[i] = Input{Index: i, Value: row, Keys: merged.columns}
	}

	return inputs, nil
}

func baseTable(tables []*table) *table {
	for _, t := range tables {
		if strings.Contains(strings.ToLower(t.name), "subject") {
			return t
		}
	}

	base := tables[0]
	for _, t := range tables[1:] {
		if len(t.rows) > len(base.rows) {
			base = t
		}
	}

	return base
}

// sharedColumns returns the keys present in both column lists, in key order.
func sharedColumns(keys, left, right []string) []string {
	var out []string

	for _, k := range keys {
		if slices.Contains(left, k) && slices.Contains(right, k) {
			out = append(out, k)
		}
	}

	return out
}

// outerJoin keeps left row order, emits one row per matching pair and
// appends unmatched right rows last.
func outerJoin(left, right *table, on []string) *table {
	out := &table{name: left.name, columns: slices.Clone(left.columns)}

	rename := make(map[string]string, len(right.columns))

	for _, c := range right.columns {
		switch {
		case slices.Contains(on, c):
			rename[c] = c
		case slices.Contains(left.columns, c):
			rename[c] = c + "_" + right.name
			out.columns = append(out.columns, rename[c])
		default:
			rename[c] = c
			out.columns = append(out.columns, c)
		}
	}

	index := make(map[string][]int, len(right.rows))
	for i, row := range right.rows {
		k := joinKey(row, on)
		index[k] = append(index[k], i)
	}

	matched := make([]bool, len(right.rows))

	for _, l := range left.rows {
		hits := index[joinKey(l, on)]
		if len(hits) == 0 {
			out.rows = append(out.rows, combine(out.columns, l, nil, on, rename))
			continue
		}

		for _, i := range hits {
			matched[i] = true
			out.rows = append(out.rows, combine(out.columns, l, right.rows[i], on, rename))
		}
	}

	for i, r := range right.rows {
		if !matched[i] {
			out.rows = append(out.rows, combine(out.columns, nil, r, on, rename))
		}
	}

	return out
}

func combine(columns []string, l, r map[string]any, on []string, rename map[string]string) map[string]any {
	row := make(map[string]any, len(columns))
	for _, c := range columns {
		row[c] = nil
	}

	for k, v := range l {
		row[k] = v
	}

	for k, v := range r {
		if l != nil && slices.Contains(on, k) {
			continue
		}

		row[rename[k]] = v
	}

	return row
}

// joinKey encodes the key cells of row; null cells match each other.
func joinKey(row map[string]any, on []string) string {
	var b strings.Builder

	for _, k := range on {
		s, ok := row[k].(string)
		if !ok {
			b.WriteString("\x00\x1f")
			continue
		}

		b.WriteString("\x01")
		b.WriteString(s)
		b.WriteString("\x1f")
	}

	return b.String()
}
