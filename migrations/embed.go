// Package migrations holds the goose SQL migrations, embedded so the migrate
// binary ships without a migrations directory on disk.
package migrations

import "embed"

// FS contains every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
