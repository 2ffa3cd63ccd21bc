package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/romangod6/sitemap-builder/internal/models"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

type Store interface {
	Initialize() error
	Close() error

	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error)
	LatestRun(ctx context.Context) (*models.Run, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error

	// Entry operations
	GetRunEntries(ctx context.Context, id uuid.UUID) ([]models.URLEntry, error)
}

// NewStore opens a Postgres store for postgres:// DSNs and a SQLite store for
// anything else (a file path or a file: URI).
func NewStore(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(dsn)
	}
	return NewSQLiteStore(strings.TrimPrefix(dsn, "sqlite://"))
}
