// Package migration applies and reverts schema migrations inside a transaction,
// recording them in django_migrations so the web application sees the same state.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bdougie/gtlayout/internal/storage"
)

var (
	ErrMissingDependency = errors.New("dependency not applied")
	ErrNotApplied        = errors.New("migration not applied")
	ErrHasDependents     = errors.New("later migrations are applied")
)

// Key identifies a migration within an app
type Key struct {
	App  string
	Name string
}

func (k Key) String() string {
	return k.App + "." + k.Name
}

// Operation is one reversible step. A nil Up or Down does nothing.
type Operation struct {
	Name string
	Up   func(ctx context.Context, db storage.DB) error
	Down func(ctx context.Context, db storage.DB) error
}

type Migration struct {
	Key          Key
	Dependencies []Key
	Operations   []Operation
}

const (
	isAppliedSQL = `SELECT EXISTS (SELECT 1 FROM django_migrations WHERE app = $1 AND name = $2)`
	recordSQL    = `INSERT INTO django_migrations (app, name, applied) VALUES ($1, $2, $3)`
	unrecordSQL  = `DELETE FROM django_migrations WHERE app = $1 AND name = $2`
	laterSQL     = `SELECT name FROM django_migrations WHERE app = $1 AND name > $2 ORDER BY name LIMIT 1`
)

// Runner executes migrations against a database
type Runner struct {
	db     storage.DB
	logger *slog.Logger
}

func NewRunner(db storage.DB, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, logger: logger}
}

// Apply runs all operations of m in one transaction and records it.
// It returns false without changes when m is already applied.
func (r *Runner) Apply(ctx context.Context, m Migration) (bool, error) {
	logger := r.logger.With("migration", m.Key.String())

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, dep := range m.Dependencies {
		ok, err := isApplied(ctx, tx, dep)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%s: %w: %s", m.Key, ErrMissingDependency, dep)
		}
	}

	applied, err := isApplied(ctx, tx, m.Key)
	if err != nil {
		return false, err
	}
	if applied {
		logger.Info("migration already applied")
		return false, nil
	}

	for i, op := range m.Operations {
		if op.Up == nil {
			continue
		}
		start := time.Now()
		if err := op.Up(ctx, tx); err != nil {
			return false, fmt.Errorf("%s: operation %d (%s): %w", m.Key, i+1, op.Name, err)
		}
		logger.Info("applied operation", "step", i+1, "operation", op.Name, "elapsed", time.Since(start))
	}

	if _, err := tx.Exec(ctx, recordSQL, m.Key.App, m.Key.Name, time.Now()); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", m.Key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", m.Key, err)
	}

	return true, nil
}

// Revert runs the Down steps of m in reverse order in one transaction
func (r *Runner) Revert(ctx context.Context, m Migration) error {
	logger := r.logger.With("migration", m.Key.String())

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	applied, err := isApplied(ctx, tx, m.Key)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%s: %w", m.Key, ErrNotApplied)
	}

	later, err := laterMigration(ctx, tx, m.Key)
	if err != nil {
		return err
	}
	if later != "" {
		return fmt.Errorf("%s: %w: %s.%s", m.Key, ErrHasDependents, m.Key.App, later)
	}

	for i := len(m.Operations) - 1; i >= 0; i-- {
		op := m.Operations[i]
		if op.Down == nil {
			continue
		}
		if err := op.Down(ctx, tx); err != nil {
			return fmt.Errorf("%s: reverting operation %d (%s): %w", m.Key, i+1, op.Name, err)
		}
		logger.Info("reverted operation", "step", i+1, "operation", op.Name)
	}

	if _, err := tx.Exec(ctx, unrecordSQL, m.Key.App, m.Key.Name); err != nil {
		return fmt.Errorf("failed to unrecord migration %s: %w", m.Key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit revert of %s: %w", m.Key, err)
	}

	return nil
}

func isApplied(ctx context.Context, db storage.DB, key Key) (bool, error) {
	var exists bool
	if err := db.QueryRow(ctx, isAppliedSQL, key.App, key.Name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", key, err)
	}
	return exists, nil
}

func laterMigration(ctx context.Context, db storage.DB, key Key) (string, error) {
	rows, err := db.Query(ctx, laterSQL, key.App, key.Name)
	if err != nil {
		return "", fmt.Errorf("failed to list migrations after %s: %w", key, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", fmt.Errorf("failed to list migrations after %s: %w", key, err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}
