// cmd/tools/dbmigrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/db"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		dbTarget       = flag.String("db", "", "SQLite database path or Postgres connection URL")
		migrationsPath = flag.String("migrations", "", "Path to migrations directory (default: embedded migrations)")
		command        = flag.String("command", "", "Command to run (up, down, version)")
		driver         = flag.String("driver", config.DriverSQLite, "Database driver (sqlite, postgres)")
	)
	flag.Parse()

	if *dbTarget == "" || *command == "" {
		log.Error().Msg("The -db and -command flags are required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	m, err := newMigrate(*driver, *dbTarget, *migrationsPath)
	if err != nil {
		log.Fatal().Err(err).Str("driver", *driver).Msg("Failed to create migrate instance")
	}
	defer m.Close()

	if err := run(m, *command); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("Migration command failed")
	}
}

func run(m *migrate.Migrate, command string) error {
	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info().Msg("Successfully ran migrations up")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		log.Info().Msg("Successfully ran migrations down")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info().Msg("No migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current version")

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

// newMigrate uses the migrations embedded in the db package unless a
// directory is given.
func newMigrate(driver, target, migrationsPath string) (*migrate.Migrate, error) {
	if migrationsPath == "" {
		conn, err := openDatabase(driver, target)
		if err != nil {
			return nil, err
		}
		return db.NewMigrate(conn.DB, driver)
	}

	absMigrations, err := filepath.Abs(migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("invalid migrations path: %w", err)
	}
	if _, err := os.Stat(absMigrations); os.IsNotExist(err) {
		return nil, fmt.Errorf("migrations directory does not exist: %s", absMigrations)
	}

	databaseURL, err := databaseURL(driver, target)
	if err != nil {
		return nil, err
	}
	return migrate.New("file://"+filepath.ToSlash(absMigrations), databaseURL)
}

func openDatabase(driver, target string) (*sqlx.DB, error) {
	switch driver {
	case config.DriverSQLite:
		if err := ensureDir(target); err != nil {
			return nil, err
		}
		return sqlx.Open("sqlite3", target+"?_fk=1")
	case config.DriverPostgres:
		return sqlx.Open("pgx", target)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func databaseURL(driver, target string) (string, error) {
	switch driver {
	case config.DriverSQLite:
		if err := ensureDir(target); err != nil {
			return "", err
		}
		absDB, err := filepath.Abs(target)
		if err != nil {
			return "", fmt.Errorf("invalid database path: %w", err)
		}
		return "sqlite3://" + filepath.ToSlash(absDB), nil
	case config.DriverPostgres:
		for _, prefix := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(target, prefix) {
				return "pgx5://" + strings.TrimPrefix(target, prefix), nil
			}
		}
		return "", fmt.Errorf("postgres target must be a postgres:// URL")
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func ensureDir(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
