// Package blob abstracts version content storage. Content is write-once:
// the bytes for a given ref are never overwritten, so concurrent readers
// are always safe. Refs are version ids.
package blob

import (
	"context"
	"io"
)

// Store is the contract the repository engine consumes. Backends are
// interchangeable; the engine never depends on which one is wired.
type Store interface {
	// Persist writes the content for ref. Fails if ref already exists.
	Persist(ctx context.Context, ref string, r io.Reader) error
	// Read opens the content of ref.
	Read(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete removes the content of ref. Deleting a missing ref is not an
	// error; purge cleanup must be idempotent.
	Delete(ctx context.Context, ref string) error
}
