package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/romangod6/sitemap-builder/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            domain TEXT NOT NULL,
            root_dir TEXT NOT NULL,
            out_path TEXT NOT NULL,
            exclude TEXT,
            url_count INTEGER NOT NULL DEFAULT 0,
            started_at DATETIME NOT NULL,
            finished_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS run_entries (
            run_id TEXT NOT NULL,
            loc TEXT NOT NULL,
            lastmod DATETIME,
            changefreq TEXT NOT NULL,
            priority REAL NOT NULL,
            title TEXT,
            source_file TEXT,
            PRIMARY KEY (run_id, loc),
            FOREIGN KEY(run_id) REFERENCES runs(id)
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

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	excludeJSON, err := json.Marshal(run.Exclude)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO runs (id, domain, root_dir, out_path, exclude, url_count, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ID.String(),
		run.Domain,
		run.RootDir,
		run.OutPath,
		string(excludeJSON),
		run.URLCount,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO run_entries (run_id, loc, lastmod, changefreq, priority, title, source_file)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range run.Entries {
		if _, err := stmt.ExecContext(ctx,
			run.ID.String(),
			e.Loc,
			nullTime(e.LastMod),
			string(e.ChangeFreq),
			e.Priority,
			e.Title,
			e.SourceFile,
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Loc, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, domain, root_dir, out_path, exclude, url_count, started_at, finished_at
        FROM runs
        WHERE id = ?
    `

	run, err := scanSQLiteRun(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, domain, root_dir, out_path, exclude, url_count, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT ? OFFSET ?
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*models.Run, error) {
	runs, err := s.ListRuns(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_entries WHERE run_id = ?`, id.String()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRunEntries(ctx context.Context, id uuid.UUID) ([]models.URLEntry, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	query := `
        SELECT loc, lastmod, changefreq, priority, title, source_file
        FROM run_entries
        WHERE run_id = ?
        ORDER BY priority DESC, loc ASC
    `

	rows, err := s.db.QueryContext(ctx, query, id.String())
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteRun(row scanner) (*models.Run, error) {
	var run models.Run
	var idStr string
	var excludeJSON sql.NullString

	err := row.Scan(
		&idStr,
		&run.Domain,
		&run.RootDir,
		&run.OutPath,
		&excludeJSON,
		&run.URLCount,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", idStr, err)
	}
	if excludeJSON.Valid && excludeJSON.String != "" {
		if err := json.Unmarshal([]byte(excludeJSON.String), &run.Exclude); err != nil {
			return nil, fmt.Errorf("bad exclude list for run %s: %w", idStr, err)
		}
	}

	return &run, nil
}

func scanEntry(row scanner) (models.URLEntry, error) {
	var e models.URLEntry
	var lastmod sql.NullTime
	var changefreq string
	var title, source sql.NullString

	if err := row.Scan(&e.Loc, &lastmod, &changefreq, &e.Priority, &title, &source); err != nil {
		return e, err
	}
	if lastmod.Valid {
		t := lastmod.Time.UTC()
		e.LastMod = &t
	}
	e.ChangeFreq = models.ChangeFreq(changefreq)
	e.Title = title.String
	e.SourceFile = source.String
	return e, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
