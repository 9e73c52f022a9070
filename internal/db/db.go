// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codr1/courtside/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	sqliteDriverName   = "sqlite3"
	postgresDriverName = "pgx"
)

type DB struct {
	*sqlx.DB
	Driver string
}

// New opens a SQLite database for the given data source name, ensures SQLite
// foreign keys are enabled in the DSN and applies embedded migrations.
func New(dataSourceName string) (*DB, error) {
	dataSourceName = ensureForeignKeysEnabledDSN(dataSourceName)
	sqlDB, err := sqlx.Open(sqliteDriverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := runMigrations(sqlDB.DB, config.DriverSQLite); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{DB: sqlDB, Driver: config.DriverSQLite}, nil
}

// NewFromConfig opens the configured database and applies migrations.
// It supports "sqlite" (creating the database directory if needed) and
// "postgres" through the pgx stdlib driver.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	var (
		sqlDB *sqlx.DB
		err   error
	)

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
		sqlDB, err = sqlx.Open(sqliteDriverName, ensureForeignKeysEnabledDSN(cfg.Database.Filename))

	case config.DriverPostgres:
		sqlDB, err = sqlx.Open(postgresDriverName, cfg.Database.URL)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := runMigrations(sqlDB.DB, cfg.Database.Driver); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{DB: sqlDB, Driver: cfg.Database.Driver}, nil
}

// ensureForeignKeysEnabledDSN adds `_fk=1` to a SQLite DSN unless `_fk=` is already present.
func ensureForeignKeysEnabledDSN(dataSourceName string) string {
	if strings.Contains(dataSourceName, "_fk=") {
		return dataSourceName
	}
	if strings.Contains(dataSourceName, "?") {
		return dataSourceName + "&_fk=1"
	}
	return dataSourceName + "?_fk=1"
}

// NewMigrate builds a migrate instance over the embedded migrations for an
// already opened connection.
func NewMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	var (
		instance database.Driver
		name     string
		err      error
	)

	switch driver {
	case config.DriverSQLite:
		instance, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		name = "sqlite3"
	case config.DriverPostgres:
		instance, err = migratepgx.WithInstance(db, &migratepgx.Config{})
		name = "pgx5"
	default:
		return nil, fmt.Errorf("unsupported migration driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, instance)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

// runMigrations applies the embedded migrations; "no change" is not an error.
func runMigrations(db *sql.DB, driver string) error {
	m, err := NewMigrate(db, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// RunInTx runs the given function in a transaction
func (db *DB) RunInTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}
