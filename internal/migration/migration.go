package migration

import (
	"context"
	"fmt"

	"gouplift/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// step is one schema change, applied once and recorded in schema_migrations
type step struct {
	version string
	name    string
	stmts   []string
}

// The DDL sticks to types both PostgreSQL and SQLite accept.
var steps = []step{
	{
		version: "0001",
		name:    "create runs",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				fingerprint TEXT NOT NULL,
				data_source TEXT NOT NULL DEFAULT '',
				record_count INTEGER NOT NULL,
				outcome TEXT NOT NULL,
				failure_count INTEGER NOT NULL DEFAULT 0,
				report TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs (fingerprint)`,
		},
	},
	{
		version: "0002",
		name:    "create significance_results",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS significance_results (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				kind TEXT NOT NULL,
				treatment TEXT NOT NULL,
				control TEXT NOT NULL,
				statistic DOUBLE PRECISION,
				p_value DOUBLE PRECISION,
				effect DOUBLE PRECISION,
				indeterminate BOOLEAN NOT NULL DEFAULT FALSE,
				error_code TEXT,
				PRIMARY KEY (run_id, kind, treatment, control)
			)`,
		},
	},
	{
		version: "0003",
		name:    "create roi_rows",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS roi_rows (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				treatment TEXT NOT NULL,
				control TEXT NOT NULL,
				k DOUBLE PRECISION NOT NULL,
				uplift_at_k DOUBLE PRECISION NOT NULL,
				n_mailed INTEGER NOT NULL,
				incremental_conversions DOUBLE PRECISION NOT NULL,
				revenue_gain DOUBLE PRECISION NOT NULL,
				email_cost DOUBLE PRECISION NOT NULL,
				net_profit DOUBLE PRECISION NOT NULL,
				realized_uplift_at_k DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (run_id, treatment, control, k)
			)`,
		},
	},
}

// MigrationRunner applies the pending schema steps in version order
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: steps[len(steps)-1].version,
	}
}

// Version returns the latest schema version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all pending migrations, each in its own transaction
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return errors.DatabaseError("failed to create schema_migrations table", err)
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return errors.DatabaseError("failed to read applied migrations", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, s := range steps {
		if done[s.version] {
			continue
		}
		if err := r.apply(ctx, db, s); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to apply migration %s (%s)", s.version, s.name))
		}
	}
	return nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, s step) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("begin migration", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError("execute migration statement", err)
		}
	}
	if _, err := tx.ExecContext(ctx, db.Rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`), s.version, s.name); err != nil {
		return errors.DatabaseError("record migration", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("commit migration", err)
	}
	return nil
}
