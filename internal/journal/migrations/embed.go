// Package migrations embeds the journal schema migration files so they
// compile into the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
