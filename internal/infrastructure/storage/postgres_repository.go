package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
)

// PostgresRepository records per-run dispositions into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.DispositionStore = (*PostgresRepository)(nil)

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation. A nil db is allowed;
// the repository then drops writes, so runs without a database still work.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// RecordRun inserts one row per record disposition for the given run.
func (r *PostgresRepository) RecordRun(ctx context.Context, runID, pipeline string, dispositions []domain.RecordDisposition) error {
	if r.db == nil || len(dispositions) == 0 {
		return nil
	}

	builder := sq.Insert("run_dispositions").
		Columns("run_id", "pipeline", "pmid", "title", "category", "disposition").
		PlaceholderFormat(sq.Dollar)
	for _, d := range dispositions {
		builder = builder.Values(runID, pipeline, d.PMID, d.Title, string(d.Category), string(d.Disposition))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build disposition insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert dispositions: %w", err)
	}
	return nil
}
