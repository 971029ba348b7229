// Package migrations embeds the per-driver schema migration files so the
// tagkeeper binary deploys without external SQL files.
package migrations

import "embed"

//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
