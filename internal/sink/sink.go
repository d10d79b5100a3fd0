// Package sink delivers emitted records: a JSON array on stdout or in a
// file, or rows in a PostgreSQL JSONB table.
package sink

import (
	"context"
	"fmt"
	"io"
)

// Kinds.
const (
	KindJSON     = "json"
	KindPostgres = "postgres"
)

// Batch is the output of one run.
type Batch struct {
	RunID   string
	Source  string
	Target  string
	Records []any
}

// Sink receives emitted records.
type Sink interface {
	Write(ctx context.Context, b Batch) error
	Close() error
}

// Config selects and configures a sink.
type Config struct {
	Kind string `yaml:"kind"`
	// Output is the JSON file, "-" or empty for Stdout.
	Output string `yaml:"output"`
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`
	// Table receives rows; defaults to DefaultTable.
	Table string `yaml:"table"`
}

// Open builds the configured sink. stdout backs the JSON sink when no
// output file is set.
func Open(ctx context.Context, cfg Config, stdout io.Writer) (Sink, error) {
	switch cfg.Kind {
	case KindJSON, "":
		return NewJSON(cfg.Output, stdout), nil
	case KindPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Kind)
	}
}
