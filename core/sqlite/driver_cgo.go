//go:build cgo_sqlite

// Build with: CGO_ENABLED=1 go build -tags cgo_sqlite
package sqlite

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"
)
