package store

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
)

// SetExtractedText stores the cleaned extraction result and marks the
// document as extracted. The caller must clean the text first; the store
// rejects NUL bytes and surrogates.
func (s *Store) SetExtractedText(ctx context.Context, docID, text, language string) error {
	_, err := s.exec(ctx,
		`UPDATE nodes SET extracted_text=?, language=?, text_extracted=? WHERE id=?`,
		text, language, true, docID)
	return err
}

// MarkExtracted sets only the extraction flag, used when extraction failed
// so the document does not wedge the queue.
func (s *Store) MarkExtracted(ctx context.Context, docID string) error {
	_, err := s.exec(ctx, `UPDATE nodes SET text_extracted=? WHERE id=?`, true, docID)
	return err
}

// ResetPendingExtractionFlag re-queues one document for extraction.
func (s *Store) ResetPendingExtractionFlag(ctx context.Context, docID string) (int64, error) {
	res, err := s.exec(ctx, `UPDATE nodes SET text_extracted=? WHERE id=? AND kind=?`,
		false, docID, string(models.KindDocument))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return n, wrapDB(err)
}

// ResetAllPendingExtractionFlags re-queues every document.
func (s *Store) ResetAllPendingExtractionFlags(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `UPDATE nodes SET text_extracted=? WHERE kind=?`,
		false, string(models.KindDocument))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return n, wrapDB(err)
}

// HasPendingExtractions reports whether any document awaits extraction.
func (s *Store) HasPendingExtractions(ctx context.Context) (bool, error) {
	n, err := s.PendingExtractionCount(ctx)
	return n > 0, err
}

// PendingExtractionSize sums the current-version byte sizes of every
// document awaiting extraction.
func (s *Store) PendingExtractionSize(ctx context.Context) (int64, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT COALESCE(SUM(v.size), 0) FROM versions v
		 JOIN nodes n ON n.id = v.document_id
		 WHERE v.current=? AND n.kind=? AND n.text_extracted=?`),
		true, string(models.KindDocument), false).Scan(&size)
	return size, wrapDB(err)
}

// PendingExtractionCount counts documents awaiting extraction.
func (s *Store) PendingExtractionCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM nodes WHERE kind=? AND text_extracted=?`),
		string(models.KindDocument), false).Scan(&count)
	if err != nil {
		return 0, wrapDB(err)
	}
	return count, nil
}

// PendingExtractions returns up to max work items for the extraction queue,
// each carrying the current version to read content from.
func (s *Store) PendingExtractions(ctx context.Context, max int) ([]*models.TextExtractorWork, error) {
	ids, err := s.stringColumn(ctx,
		`SELECT id FROM nodes WHERE kind=? AND text_extracted=? ORDER BY created LIMIT ?`,
		string(models.KindDocument), false, max)
	if err != nil {
		return nil, err
	}

	var out []*models.TextExtractorWork
	for _, id := range ids {
		ver, err := s.CurrentVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		path, err := s.NodePath(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, &models.TextExtractorWork{
			DocID:     id,
			DocPath:   path,
			VersionID: ver.ID,
			Created:   ver.Created,
		})
	}
	return out, nil
}
