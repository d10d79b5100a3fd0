package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// DefaultTable receives harmonized records.
const DefaultTable = "harmonized_records"

// insertChunk bounds rows per INSERT statement.
const insertChunk = 500

// Postgres appends records to a JSONB table, one row per record.
type Postgres struct {
	db    *sqlx.DB
	table string
}

type row struct {
	RunID   string         `db:"run_id"`
	Source  string         `db:"source"`
	Target  string         `db:"target"`
	Ordinal int            `db:"ordinal"`
	Record  types.JSONText `db:"record"`
}

// OpenPostgres connects and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink: dsn is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: connect: %w", err)
	}

	s := NewPostgres(db, table)
	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewPostgres wraps an open connection.
func NewPostgres(db *sqlx.DB, table string) *Postgres {
	if table == "" {
		table = DefaultTable
	}

	return &Postgres{db: db, table: table}
}

func (s *Postgres) ensureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL(s.table)); err != nil {
		return fmt.Errorf("postgres sink: create table %s: %w", s.table, err)
	}

	return nil
}

// Write inserts the batch in one transaction.
func (s *Postgres) Write(ctx context.Context, b Batch) error {
	rows, err := buildRows(b)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres sink: begin: %w", err)
	}

	query := insertSQL(s.table)

	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))

		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres sink: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres sink: commit: %w", err)
	}

	return nil
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

func buildRows(b Batch) ([]row, error) {
	rows := make([]row, 0, len(b.Records))

	for i, rec := range b.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("postgres sink: encode record %d: %w", i, err)
		}

		rows = append(rows, row{
			RunID:   b.RunID,
			Source:  b.Source,
			Target:  b.Target,
			Ordinal: i,
			Record:  types.JSONText(data),
		})
	}

	return rows, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id uuid NOT NULL,
	source text NOT NULL,
	target text NOT NULL,
	ordinal integer NOT NULL,
	record jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, ordinal)
)`, pq.QuoteIdentifier(table))
}

func insertSQL(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %s (run_id, source, target, ordinal, record) VALUES (:run_id, :source, :target, :ordinal, :record)`,
		pq.QuoteIdentifier(table),
	)
}
