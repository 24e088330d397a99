// Package migrations embeds the goose SQL migrations so deployed binaries
// are self-contained.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
