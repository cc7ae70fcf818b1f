// Package migrations embeds SQL migration files so they run regardless of
// the server's working directory.
package migrations

import "embed"

// FS is the embedded migrations filesystem.
//
//go:embed *.sql
var FS embed.FS
