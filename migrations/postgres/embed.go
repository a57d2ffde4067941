// Package migrations embeds the goose SQL migrations for the users directory.
package migrations

import "embed"

// FS contiene las migraciones de Postgres (formato goose).
//
//go:embed *.sql
var FS embed.FS
