package models

import "time"

// DocumentVersion is one immutable content revision of a document. Exactly
// one version per document has Current=true; bytes live in the blob store
// under ContentRef.
type DocumentVersion struct {
	ID         string
	DocumentID string
	Label      string // opaque, produced by the version numerator
	Author     string
	Created    time.Time
	Size       int64
	MimeType   string
	Current    bool
	ContentRef string
}

// TextExtractorWork is one pending entry of the extraction queue.
type TextExtractorWork struct {
	DocID     string
	DocPath   string
	VersionID string
	Created   time.Time
}
