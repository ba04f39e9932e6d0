package blob

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/avasilyev/docbase/internal/dbx"
)

// DBStore keeps content inline in the blobs table, sharing the node store
// database. Useful for small deployments without a datastore directory.
type DBStore struct {
	db      *sql.DB
	dialect dbx.Dialect
}

func NewDBStore(db *sql.DB, dialect dbx.Dialect) *DBStore {
	return &DBStore{db: db, dialect: dialect}
}

func (s *DBStore) Persist(ctx context.Context, ref string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		dbx.Rebind(s.dialect, `INSERT INTO blobs (ref, data) VALUES (?, ?)`), ref, data)
	return err
}

func (s *DBStore) Read(ctx context.Context, ref string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		dbx.Rebind(s.dialect, `SELECT data FROM blobs WHERE ref=?`), ref).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s not found", ref)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *DBStore) Delete(ctx context.Context, ref string) error {
	_, err := s.db.ExecContext(ctx,
		dbx.Rebind(s.dialect, `DELETE FROM blobs WHERE ref=?`), ref)
	return err
}
