// Package migrations embeds the goose schema migrations for both supported
// backends. The schemas are identical except for backend column types
// (BLOB vs BYTEA).
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Embed embed.FS

// Dir names inside Embed, passed to goose.UpContext.
const (
	DirSQLite   = "sqlite"
	DirPostgres = "postgres"
)
