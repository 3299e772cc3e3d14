// Package migrations embeds the goose SQL migrations for the postgres adapter.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
