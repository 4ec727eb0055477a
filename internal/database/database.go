package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Database stores per-chat preferences. Cards themselves are never stored.
type Database struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens the sqlite file at dbPath and brings its schema up to date.
func New(ctx context.Context, dbPath string, log *slog.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}

	d := &Database{db: db, log: log.With("dbPath", dbPath)}

	if err = d.migrate(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return d, nil
}

func (d *Database) migrate(ctx context.Context) error {
	driver, err := sqlite3.WithInstance(d.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	switch err = m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		d.log.DebugContext(ctx, "Schema is up to date")
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	default:
		version, dirty, versionErr := m.Version()
		if versionErr != nil {
			d.log.WarnContext(ctx, "Failed to read schema version", "error", versionErr)
			break
		}

		d.log.InfoContext(ctx, "Schema is migrated",
			"version", version,
			"dirty", dirty)
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
