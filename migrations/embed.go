// Package migrations embeds the SQL schema so binaries carry their own migrations.
package migrations

import "embed"

// FS holds the NNN_name.sql migration files
//
//go:embed *.sql
var FS embed.FS
