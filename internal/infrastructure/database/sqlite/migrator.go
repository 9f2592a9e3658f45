package sqlite

import (
	"database/sql"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

func newMigrator(db *sql.DB, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreMigrationError, "failed to open migration source").WithDetail(dir)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreMigrationError, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreMigrationError, "failed to create migrate instance")
	}
	return m, nil
}

// Migrate applies every pending migration from dir inside fsys. A database
// already at the latest version is not an error.
func Migrate(db *sql.DB, fsys fs.FS, dir string) error {
	m, err := newMigrator(db, fsys, dir)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, errors.CodeStoreMigrationError, "failed to run migrations").WithDetail(dir)
	}
	return nil
}

// MigrationVersion reports the current schema version and whether the last
// run left the database dirty. A fresh database reports version 0.
func MigrationVersion(db *sql.DB, fsys fs.FS, dir string) (uint, bool, error) {
	m, err := newMigrator(db, fsys, dir)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.CodeStoreMigrationError, "failed to read migration version")
	}
	return version, dirty, nil
}
