package sqlite

import (
	"embed"
	"io/fs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migration set directories inside MigrationsFS. The service applies only
// the cache set at startup; the patent and project sets mirror the shipped
// data extracts and exist to build test fixtures.
const (
	GleifCacheMigrations = "migrations/gleifcache"
	PatentMigrations     = "migrations/patents"
	ProjectMigrations    = "migrations/projects"
)

// MigrationsFS returns the embedded migration tree.
func MigrationsFS() fs.FS { return migrationsFS }
