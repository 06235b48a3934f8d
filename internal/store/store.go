// Package store persists ledger rows and a cached copy of the project
// schedule. SQLite is the default backend; Postgres is used when a database
// URL is configured.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/feaso/internal/model"
)

// RowStore is the row persistence collaborator of the engine.
type RowStore interface {
	LoadRows(ctx context.Context, projectID string) ([]model.Row, error)
	UpsertRow(ctx context.Context, projectID string, row model.Row) error
	DeleteRow(ctx context.Context, projectID string, id string) error
	Close() error
}

// Store is a RowStore that also caches the last schedule it was given.
type Store interface {
	RowStore
	CountRows(ctx context.Context, projectID string) (int, error)
	SaveSchedule(ctx context.Context, projectID string, tasks []model.ScheduleTask) error
	LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error)
}

// Driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Config selects and locates a backend.
type Config struct {
	Driver string // "sqlite" (default) or "postgres"
	Path   string // SQLite database file
	URL    string // Postgres connection string
}

// Open opens the configured backend, creating its schema if needed.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres, "postgresql", "pgx":
		p, err := OpenPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
