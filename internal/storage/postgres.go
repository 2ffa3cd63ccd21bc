package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/romangod6/sitemap-builder/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id UUID PRIMARY KEY,
            domain VARCHAR(2048) NOT NULL,
            root_dir TEXT NOT NULL,
            out_path TEXT NOT NULL,
            exclude TEXT[],
            url_count INTEGER NOT NULL DEFAULT 0,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS run_entries (
            run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            loc VARCHAR(2048) NOT NULL,
            lastmod TIMESTAMPTZ,
            changefreq VARCHAR(16) NOT NULL,
            priority DOUBLE PRECISION NOT NULL,
            title TEXT,
            source_file TEXT,
            PRIMARY KEY (run_id, loc)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO runs (id, domain, root_dir, out_path, exclude, url_count, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `,
		run.ID,
		run.Domain,
		run.RootDir,
		run.OutPath,
		pq.Array(run.Exclude),
		run.URLCount,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO run_entries (run_id, loc, lastmod, changefreq, priority, title, source_file)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range run.Entries {
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			e.Loc,
			nullTime(e.LastMod),
			string(e.ChangeFreq),
			e.Priority,
			nilIfEmpty(e.Title),
			nilIfEmpty(e.SourceFile),
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Loc, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, domain, root_dir, out_path, exclude, url_count, started_at, finished_at
        FROM runs
        WHERE id = $1
    `

	run, err := scanPostgresRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, domain, root_dir, out_path, exclude, url_count, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*models.Run, error) {
	runs, err := s.ListRuns(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

func (s *PostgresStore) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) GetRunEntries(ctx context.Context, id uuid.UUID) ([]models.URLEntry, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	query := `
        SELECT loc, lastmod, changefreq, priority, title, source_file
        FROM run_entries
        WHERE run_id = $1
        ORDER BY priority DESC, loc ASC
    `

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.URLEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanPostgresRun(row scanner) (*models.Run, error) {
	var run models.Run
	var exclude []string

	err := row.Scan(
		&run.ID,
		&run.Domain,
		&run.RootDir,
		&run.OutPath,
		pq.Array(&exclude),
		&run.URLCount,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Exclude = exclude

	return &run, nil
}

// Helper function to convert empty strings to nil for SQL
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
