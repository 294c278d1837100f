package postgres

import (
	"context"
	"time"

	apperrors "gouplift/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects and pings the database. SQLite in-memory databases are
// pinned to one connection so every query sees the same data.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, apperrors.ConfigError("unsupported database driver %q (want postgres or sqlite)", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, apperrors.DatabaseError("open database", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.DatabaseError("ping database", err)
	}
	return db, nil
}
