// Package sqlite provides the SQLite-backed stores of the radar service:
// the read-only patent and project extracts and the read-write entity-
// resolution cache. The driver is pure Go (modernc.org/sqlite), so the
// binary stays cgo-free.
package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// driverName is the database/sql registration of modernc.org/sqlite.
const driverName = "sqlite"

// sqlxOpen is a variable to allow mocking in tests.
var sqlxOpen = func(driverName, dataSourceName string) (*sqlx.DB, error) {
	return sqlx.Open(driverName, dataSourceName)
}

// Open opens a SQLite database file and verifies it responds. Read-only
// mode is enforced at the connection level so a stray write in a query
// path fails loudly instead of mutating a data extract.
func Open(path string, readOnly bool) (*sqlx.DB, error) {
	db, err := sqlxOpen(driverName, BuildDSN(path, readOnly))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to open sqlite database").WithDetail(path)
	}

	// SQLite serializes writers; a small pool is enough and keeps
	// file-handle usage predictable.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "sqlite database not reachable").WithDetail(path)
	}
	return db, nil
}

// BuildDSN renders the file: DSN for a database path. The busy timeout
// keeps readers from failing immediately when the cache file is mid-write;
// _time_format makes the driver store time.Time values in SQLite's own
// datetime text form so TIMESTAMP columns round-trip.
func BuildDSN(path string, readOnly bool) string {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
	if readOnly {
		dsn += "&mode=ro"
	}
	return dsn
}
