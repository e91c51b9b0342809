// Package migrations contains the embedded SQLite schema.
package migrations

import "embed"

// FS contains the golang-migrate migration files.
//
//go:embed *.sql
var FS embed.FS
