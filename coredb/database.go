// Package coredb provides database connection and utilities for the Noor Jewels platform.
package coredb

import (
	"encore.dev/storage/sqldb"
)

// DB is the core database instance for the Noor Jewels platform.
// It uses PostgreSQL as the underlying database engine.
var DB = sqldb.NewDatabase("coredb", sqldb.DatabaseConfig{
	Migrations: "./migrations",
})
