package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/models"
)

// VersionNumerator produces the opaque version labels. Implementations must
// be deterministic so checkin can derive the next label from the current one.
type VersionNumerator interface {
	InitialLabel() string
	NextLabel(previous string) string
}

// MajorNumerator is the default numeration strategy: "1.0", "2.0", ...
type MajorNumerator struct{}

func (MajorNumerator) InitialLabel() string { return "1.0" }

func (MajorNumerator) NextLabel(previous string) string {
	var major int
	if _, err := fmt.Sscanf(previous, "%d.", &major); err != nil {
		major = 0
	}
	return fmt.Sprintf("%d.0", major+1)
}

const versionColumns = `id, document_id, label, author, created, size, mime_type, current, content_ref`

// CreateVersion inserts one immutable version row. The caller is
// responsible for keeping exactly one current version per document (see
// ClearCurrentVersion).
func (s *Store) CreateVersion(ctx context.Context, v *models.DocumentVersion) error {
	_, err := s.exec(ctx, `
		INSERT INTO versions (id, document_id, label, author, created, size, mime_type, current, content_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.DocumentID, v.Label, v.Author, v.Created.Unix(), v.Size, v.MimeType, v.Current, v.ContentRef)
	return err
}

// ClearCurrentVersion drops the current flag from every version of the
// document, in preparation for a new current version.
func (s *Store) ClearCurrentVersion(ctx context.Context, documentID string) error {
	_, err := s.exec(ctx, `UPDATE versions SET current=? WHERE document_id=?`, false, documentID)
	return err
}

func scanVersion(sc rowScanner) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	var created int64
	err := sc.Scan(&v.ID, &v.DocumentID, &v.Label, &v.Author, &created, &v.Size, &v.MimeType, &v.Current, &v.ContentRef)
	if err != nil {
		return nil, err
	}
	v.Created = unixTime(created)
	return &v, nil
}

// CurrentVersion returns the single version of the document flagged current.
func (s *Store) CurrentVersion(ctx context.Context, documentID string) (*models.DocumentVersion, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+versionColumns+` FROM versions WHERE document_id=? AND current=?`), documentID, true)

	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no current version for %s", common.ErrPathNotFound, documentID)
	}
	if err != nil {
		return nil, wrapDB(err)
	}
	return v, nil
}

// ListVersions returns the document's version history, oldest first.
func (s *Store) ListVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+versionColumns+` FROM versions WHERE document_id=? ORDER BY created, label`), documentID)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []*models.DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, v)
	}
	return out, wrapDB(rows.Err())
}

// DeleteVersions removes all version rows of the document and returns their
// content refs so the caller can release the blobs after commit.
func (s *Store) DeleteVersions(ctx context.Context, documentID string) ([]string, error) {
	refs, err := s.stringColumn(ctx, `SELECT content_ref FROM versions WHERE document_id=?`, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx, `DELETE FROM versions WHERE document_id=?`, documentID); err != nil {
		return nil, err
	}
	return refs, nil
}
