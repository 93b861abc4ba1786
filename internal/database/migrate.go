package database

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

// MigrateCommand is a goose command supported by Migrate.
type MigrateCommand string

const (
	MigrateUp     MigrateCommand = "up"
	MigrateDown   MigrateCommand = "down"
	MigrateStatus MigrateCommand = "status"
)

// RunMigrations applies all pending migrations through the pool.
func RunMigrations(pool *pgxpool.Pool) error {
	return Migrate(pool, MigrateUp)
}

// Migrate runs a goose command against the schema embedded in the binary.
func Migrate(pool *pgxpool.Pool, cmd MigrateCommand) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrate(db, cmd)
}

func migrate(db *sql.DB, cmd MigrateCommand) error {
	goose.SetBaseFS(EmbedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	var err error
	switch cmd {
	case MigrateUp:
		err = goose.Up(db, migrationsDir)
	case MigrateDown:
		err = goose.Down(db, migrationsDir)
	case MigrateStatus:
		err = goose.Status(db, migrationsDir)
	default:
		return fmt.Errorf("unknown migrate command %q", cmd)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", cmd, err)
	}
	return nil
}
