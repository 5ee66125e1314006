//go:build cgo

package history

import (
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// driverName is the database/sql driver registered for SQLite when CGO is
// available. mattn/go-sqlite3 links against the C library and is the
// teacher's own default build.
const driverName = "sqlite3"
