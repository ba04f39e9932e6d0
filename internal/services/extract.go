package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/avasilyev/docbase/internal/automation"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/store"
	"github.com/avasilyev/docbase/internal/textutil"
)

// PlainTextExtractor is the built-in extractor: it handles text mime types
// by reading the content as-is and rejects everything else. Rich formats
// need an external extractor wired in its place.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, _, mimeType string, content io.Reader) (string, error) {
	if !strings.HasPrefix(mimeType, "text/") {
		return "", fmt.Errorf("unsupported mime type %q", mimeType)
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ResetPendingExtraction re-queues one document for text extraction,
// returning the number of affected documents (0 or 1).
func (s *Service) ResetPendingExtraction(ctx context.Context, docID string) (int64, error) {
	return s.store.ResetPendingExtractionFlag(ctx, docID)
}

// ResetAllPendingExtractions re-queues every document.
func (s *Service) ResetAllPendingExtractions(ctx context.Context) (int64, error) {
	return s.store.ResetAllPendingExtractionFlags(ctx)
}

// PendingExtractionCount counts the documents awaiting extraction.
func (s *Service) PendingExtractionCount(ctx context.Context) (int64, error) {
	return s.store.PendingExtractionCount(ctx)
}

// HasPendingExtractions reports whether the extraction queue is non-empty.
func (s *Service) HasPendingExtractions(ctx context.Context) (bool, error) {
	return s.store.HasPendingExtractions(ctx)
}

// PendingExtractionSize sums the current-version sizes of the documents
// awaiting extraction.
func (s *Service) PendingExtractionSize(ctx context.Context) (int64, error) {
	return s.store.PendingExtractionSize(ctx)
}

// ProcessExtractionQueue extracts text for up to max pending documents.
// Extraction failures are logged and the document is still marked handled,
// so one broken file cannot wedge the queue. Returns the number of
// documents processed.
func (s *Service) ProcessExtractionQueue(ctx context.Context, max int) (int, error) {
	if s.extractor == nil {
		return 0, nil
	}

	works, err := s.store.PendingExtractions(ctx, max)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, w := range works {
		if err := s.extractOne(ctx, w); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// extractOne runs one extraction inside its own unit of work: PRE hooks,
// the external extractor, POST hooks (which may rewrite the text), then
// persistence of the cleaned result. The stored text is scrubbed of NUL
// bytes and surrogate sequences; the backends reject both.
func (s *Service) extractOne(ctx context.Context, w *models.TextExtractorWork) error {
	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, w.DocID)
		if err != nil {
			return err
		}

		env := &automation.Env{Node: n}
		if err := s.engine(st).Fire(ctx, models.EventTextExtractor, models.TimingPre, env); err != nil {
			return err
		}

		rc, err := s.blobs.Read(ctx, w.VersionID)
		if err != nil {
			s.log.Warn(ctx, "extraction content read failed", "doc", w.DocID, "error", err)
			return st.MarkExtracted(ctx, w.DocID)
		}
		defer rc.Close()

		text, err := s.extractor.Extract(ctx, w.DocPath, n.Document.MimeType, rc)
		if err != nil {
			s.log.Warn(ctx, "text extraction failed", "doc", w.DocID, "path", w.DocPath, "error", err)
			return st.MarkExtracted(ctx, w.DocID)
		}

		env.Text = text
		if err := s.engine(st).Fire(ctx, models.EventTextExtractor, models.TimingPost, env); err != nil {
			return err
		}

		cleaned := textutil.Clean(env.Text)
		language := ""
		if s.detector != nil {
			language = s.detector.Detect(cleaned)
		}
		return st.SetExtractedText(ctx, w.DocID, cleaned, language)
	})
}
