package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" database/sql driver
	"github.com/pressly/goose/v3"

	"MarketSniper/pkg/logger"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := dialect(driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer; the three engine loops share this handle.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	d, err := dialect(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.New("migrate"))

	if err := goose.SetDialect(d); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func dialect(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", nil
	case DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
