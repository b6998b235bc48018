// AngelaMos | 2026
// migrations.go

package migrations

import "embed"

// Files holds the ordered schema scripts applied by core.Database.Migrate.
//
//go:embed *.sql
var Files embed.FS
