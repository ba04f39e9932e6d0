// Package store is the persistence layer of the repository tree: nodes,
// versions, locks, permission grants, automation rules and the dependent
// records cascaded on purge. It performs no permission checks itself; that
// is the orchestrator's job. All methods run against a dbx.DBTX, so the
// caller decides the transaction bracket.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/dbx"
)

// Store gives SQL access to the repository schema. One implementation
// serves both backends; queries are written with '?' placeholders and
// rebound per dialect.
type Store struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// New constructs a Store bound to the given DBTX.
func New(db dbx.DBTX, dialect dbx.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// WithTx returns a Store bound to tx instead of the original handle, for
// use inside a dbx.WithTx unit of work.
func (s *Store) WithTx(tx dbx.DBTX) *Store {
	return &Store{db: tx, dialect: s.dialect}
}

func (s *Store) q(query string) string {
	return dbx.Rebind(s.dialect, query)
}

// wrapDB converts a backend error into the generic database error so
// callers never see driver-specific types. Domain sentinels pass through.
func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrPathNotFound) || errors.Is(err, common.ErrItemExists) ||
		errors.Is(err, common.ErrLock) || errors.Is(err, common.ErrDatabase) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrDatabase, err)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrapDB(err)
	}
	return res, nil
}
