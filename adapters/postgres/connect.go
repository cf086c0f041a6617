package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"gocompare/internal/config"
	"gocompare/internal/errors"
	"gocompare/internal/migration"
)

// Connect opens the run-history database named by cfg and migrates it.
// sqlite connections are limited to one so in-memory databases stay shared.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver, dsn, err := cfg.Driver()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to connect to %s database", driver), err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to migrate %s schema to version %s", driver, runner.Version())
	}
	return db, nil
}
