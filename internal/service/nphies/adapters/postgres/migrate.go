package postgres

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open connects through the pgx database/sql driver.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return db, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "load migrations")
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "init migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, "init migrator")
	}
	return m, nil
}

// MigrateUp applies every pending migration. Running it on an up-to-date
// schema is a no-op.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate up")
	}
	return nil
}

// MigrateDown rolls back one migration.
func MigrateDown(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate down")
	}
	return nil
}
