package migrations

import "embed"

// FS contains embedded SQLite migrations for gacha storage.
//
//go:embed *.sql
var FS embed.FS
