package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore keeps content as files keyed by ref, sharded by the first two
// characters to keep directories small.
type FSStore struct {
	root string
}

// NewFSStore creates the datastore directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(ref string) string {
	shard := "00"
	if len(ref) >= 2 {
		shard = ref[:2]
	}
	return filepath.Join(s.root, shard, ref)
}

func (s *FSStore) Persist(ctx context.Context, ref string, r io.Reader) error {
	p := s.path(ref)

	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("blob %s already exists", ref)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o770); err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return err
	}
	return f.Close()
}

func (s *FSStore) Read(ctx context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(ref))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, ref string) error {
	err := os.Remove(s.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
