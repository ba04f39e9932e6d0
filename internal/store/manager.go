package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avasilyev/docbase/internal/dbx"
	"github.com/avasilyev/docbase/internal/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Open connects to the configured backend, runs the schema migrations and
// returns the database handle together with its placeholder dialect.
// Supported drivers: "sqlite" (modernc) and "pgx".
func Open(ctx context.Context, driver, dsn string) (*sql.DB, dbx.Dialect, error) {
	var dialect dbx.Dialect
	var gooseDialect, dir string

	switch driver {
	case "sqlite":
		dialect = dbx.DialectSQLite
		gooseDialect = "sqlite3"
		dir = migrations.DirSQLite
	case "pgx":
		dialect = dbx.DialectPostgres
		gooseDialect = "postgres"
		dir = migrations.DirPostgres
	default:
		return nil, 0, fmt.Errorf("unsupported db driver: %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, 0, fmt.Errorf("db open error: %w", err)
	}

	if err := RunMigrations(ctx, db, gooseDialect, dir); err != nil {
		_ = db.Close()
		return nil, 0, fmt.Errorf("migration error: %w", err)
	}

	return db, dialect, nil
}

// RunMigrations applies the embedded goose migration set for one dialect.
func RunMigrations(ctx context.Context, db *sql.DB, gooseDialect, dir string) error {
	goose.SetBaseFS(migrations.Embed)

	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, dir)
}
