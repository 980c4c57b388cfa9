package migrations

import "embed"

// FS contains embedded SQLite migrations for voucher storage.
//
//go:embed *.sql
var FS embed.FS
