//go:build !cgo

package history

import (
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// driverName is the database/sql driver registered for SQLite on builds
// with CGO disabled. modernc.org/sqlite is a pure-Go translation, the
// teacher's own fallback for CGO-free builds.
const driverName = "sqlite"
