package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/avasilyev/docbase/internal/automation"
	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/store"
)

// CreateDocumentRequest carries the inputs of a document create. PRE hooks
// may rewrite ParentID, Name, MimeType and Keywords before the core
// operation runs.
type CreateDocumentRequest struct {
	User     string
	ParentID string
	Name     string
	MimeType string
	Content  io.Reader
	Size     int64

	Keywords   []string
	Categories []string
	Properties []models.NodeProperty
	Notes      []string
}

// CreateDocumentResult is the finalized node plus the client-visible upload
// response, which POST hooks may have rewritten.
type CreateDocumentResult struct {
	Node           *models.Node
	UploadResponse string
}

// CreateDocument builds a document node with its first version, persists the
// content and clones the extended attributes, all in one unit of work. The
// quota is checked before any content is persisted; a blob persisted before
// a later failure is deleted so no orphaned content survives a rollback.
func (s *Service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*CreateDocumentResult, error) {
	var (
		result       *CreateDocumentResult
		persistedRef string
	)

	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		if err := s.assertWithinQuota(ctx, st, req.User, req.Size); err != nil {
			return err
		}

		parent, err := st.FindByPk(ctx, req.ParentID)
		if err != nil {
			return err
		}

		env := &automation.Env{
			ParentID:   req.ParentID,
			ParentNode: parent,
			Name:       req.Name,
			MimeType:   req.MimeType,
			Keywords:   req.Keywords,
		}
		if err := s.engine(st).Fire(ctx, models.EventDocumentCreate, models.TimingPre, env); err != nil {
			return err
		}
		if env.ParentNode == nil {
			if env.ParentNode, err = st.FindByPk(ctx, env.ParentID); err != nil {
				return err
			}
		}
		parent = env.ParentNode

		if err := s.security.CheckRead(ctx, req.User, parent); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, req.User, parent); err != nil {
			return err
		}
		if err := st.CheckItemExistence(ctx, parent.ID, env.Name); err != nil {
			return err
		}

		node := &models.Node{
			ID:              uuid.New().String(),
			ParentID:        parent.ID,
			Kind:            models.KindDocument,
			Name:            env.Name,
			Context:         parent.Context,
			Author:          req.User,
			Created:         time.Now().UTC(),
			UserPermissions: cloneGrants(parent.UserPermissions),
			RolePermissions: cloneGrants(parent.RolePermissions),
			Document: &models.DocumentProps{
				MimeType:   env.MimeType,
				Keywords:   env.Keywords,
				Categories: req.Categories,
				Properties: req.Properties,
			},
		}
		node.UserPermissions[req.User] = models.AllGrants

		if err := st.CreateNode(ctx, node); err != nil {
			return err
		}

		version := &models.DocumentVersion{
			ID:         uuid.New().String(),
			DocumentID: node.ID,
			Label:      s.numerator.InitialLabel(),
			Author:     req.User,
			Created:    node.Created,
			Size:       req.Size,
			MimeType:   env.MimeType,
			Current:    true,
		}
		version.ContentRef = version.ID
		if err := st.CreateVersion(ctx, version); err != nil {
			return err
		}

		if err := s.blobs.Persist(ctx, version.ContentRef, req.Content); err != nil {
			return err
		}
		persistedRef = version.ContentRef

		for _, text := range req.Notes {
			note := &models.Note{
				ID: uuid.New().String(), NodeID: node.ID, Author: req.User,
				Created: time.Now().UTC(), Text: text,
			}
			if err := st.CreateNote(ctx, note); err != nil {
				return err
			}
		}

		path, err := st.NodePath(ctx, node.ID)
		if err != nil {
			return err
		}
		post := &automation.Env{Node: node, UploadResponse: path}
		if err := s.engine(st).Fire(ctx, models.EventDocumentCreate, models.TimingPost, post); err != nil {
			return err
		}

		result = &CreateDocumentResult{Node: post.Node, UploadResponse: post.UploadResponse}
		return nil
	})
	if err != nil {
		if persistedRef != "" {
			if derr := s.blobs.Delete(ctx, persistedRef); derr != nil {
				s.log.Warn(ctx, "orphaned blob cleanup failed", "ref", persistedRef, "error", derr)
			}
		}
		return nil, err
	}

	s.logActivity(ctx, req.User, "CREATE_DOCUMENT", result.Node.ID, result.UploadResponse, result.Node.Name)
	return result, nil
}

func cloneGrants(m map[string]models.Permission) map[string]models.Permission {
	out := make(map[string]models.Permission, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Checkout starts an edit session: sets the checkout flag and acquires the
// lock atomically.
func (s *Service) Checkout(ctx context.Context, user, id string) (*models.Lock, error) {
	var lock *models.Lock
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if n.Kind != models.KindDocument {
			return fmt.Errorf("%w: not a document: %s", common.ErrLock, id)
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if n.Document.CheckedOut {
			return fmt.Errorf("%w: document already checked out", common.ErrLock)
		}

		if lock, err = st.Lock(ctx, user, id); err != nil {
			return err
		}
		return st.SetCheckedOut(ctx, id, true)
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// Checkin ends an edit session with new content: creates the next version,
// flips the current flag to it, releases the checkout and the lock. The
// document is re-queued for text extraction.
func (s *Service) Checkin(ctx context.Context, user, id string, content io.Reader, size int64) (*models.DocumentVersion, error) {
	var (
		version      *models.DocumentVersion
		persistedRef string
	)

	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if n.Kind != models.KindDocument {
			return fmt.Errorf("%w: not a document: %s", common.ErrLock, id)
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if !n.Document.CheckedOut {
			return fmt.Errorf("%w: document not checked out", common.ErrLock)
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}

		current, err := st.CurrentVersion(ctx, id)
		if err != nil {
			return err
		}
		if err := st.ClearCurrentVersion(ctx, id); err != nil {
			return err
		}

		version = &models.DocumentVersion{
			ID:         uuid.New().String(),
			DocumentID: id,
			Label:      s.numerator.NextLabel(current.Label),
			Author:     user,
			Created:    time.Now().UTC(),
			Size:       size,
			MimeType:   n.Document.MimeType,
			Current:    true,
		}
		version.ContentRef = version.ID
		if err := st.CreateVersion(ctx, version); err != nil {
			return err
		}

		if err := s.blobs.Persist(ctx, version.ContentRef, content); err != nil {
			return err
		}
		persistedRef = version.ContentRef

		if _, err := st.ResetPendingExtractionFlag(ctx, id); err != nil {
			return err
		}
		// the lock may already be gone after an administrative force unlock
		if n.IsLocked() {
			if err := st.Unlock(ctx, user, id, false); err != nil {
				return err
			}
		}
		return st.SetCheckedOut(ctx, id, false)
	})
	if err != nil {
		if persistedRef != "" {
			if derr := s.blobs.Delete(ctx, persistedRef); derr != nil {
				s.log.Warn(ctx, "orphaned blob cleanup failed", "ref", persistedRef, "error", derr)
			}
		}
		return nil, err
	}

	s.logActivity(ctx, user, "CHECKIN_DOCUMENT", id, "", version.Label)
	return version, nil
}

// CancelCheckout abandons an edit session, releasing the checkout flag and
// the lock without creating a version. force allows an administrator to
// cancel another user's session.
func (s *Service) CancelCheckout(ctx context.Context, user, id string, force bool) error {
	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if n.Kind != models.KindDocument {
			return fmt.Errorf("%w: not a document: %s", common.ErrLock, id)
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if !n.Document.CheckedOut {
			return fmt.Errorf("%w: document not checked out", common.ErrLock)
		}

		if n.IsLocked() {
			if err := st.Unlock(ctx, user, id, force); err != nil {
				return err
			}
		}
		return st.SetCheckedOut(ctx, id, false)
	})
}

// Lock acquires the advisory lock without a checkout.
func (s *Service) Lock(ctx context.Context, user, id string) (*models.Lock, error) {
	var lock *models.Lock
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		lock, err = st.Lock(ctx, user, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// Unlock releases the advisory lock; force overrides the owner check.
func (s *Service) Unlock(ctx context.Context, user, id string, force bool) error {
	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		return st.Unlock(ctx, user, id, force)
	})
}

// GetLock returns the current lock, or nil when unlocked.
func (s *Service) GetLock(ctx context.Context, user, id string) (*models.Lock, error) {
	n, err := s.getReadable(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if n.Document == nil {
		return nil, nil
	}
	return n.Document.Lock, nil
}

// IsLocked reports whether the document holds a lock.
func (s *Service) IsLocked(ctx context.Context, user, id string) (bool, error) {
	n, err := s.getReadable(ctx, user, id)
	if err != nil {
		return false, err
	}
	return n.IsLocked(), nil
}

// IsCheckedOut reports whether the document is in an edit session.
func (s *Service) IsCheckedOut(ctx context.Context, user, id string) (bool, error) {
	n, err := s.getReadable(ctx, user, id)
	if err != nil {
		return false, err
	}
	return n.Document != nil && n.Document.CheckedOut, nil
}

// GetContent opens the current version's bytes from the blob store.
func (s *Service) GetContent(ctx context.Context, user, id string) (io.ReadCloser, *models.DocumentVersion, error) {
	if _, err := s.getReadable(ctx, user, id); err != nil {
		return nil, nil, err
	}
	version, err := s.store.CurrentVersion(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Read(ctx, version.ContentRef)
	if err != nil {
		return nil, nil, err
	}
	return rc, version, nil
}

// GetVersionHistory lists the document's versions, oldest first.
func (s *Service) GetVersionHistory(ctx context.Context, user, id string) ([]*models.DocumentVersion, error) {
	if _, err := s.getReadable(ctx, user, id); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, id)
}

// GetSize returns the current version's byte size.
func (s *Service) GetSize(ctx context.Context, user, id string) (int64, error) {
	n, err := s.getReadable(ctx, user, id)
	if err != nil {
		return 0, err
	}
	if n.Kind != models.KindDocument {
		return 0, fmt.Errorf("%w: not a document: %s", common.ErrPathNotFound, id)
	}
	version, err := s.store.CurrentVersion(ctx, id)
	if err != nil {
		return 0, err
	}
	return version.Size, nil
}

// DocumentProperties is the aggregated read of a document: the hydrated
// node (permissions, lock, keywords, categories, subscriptors, property
// groups), its path, the current version and the node's notes.
type DocumentProperties struct {
	Node    *models.Node
	Path    string
	Current *models.DocumentVersion
	Notes   []*models.Note
}

// GetProperties resolves everything a properties view needs in one call.
func (s *Service) GetProperties(ctx context.Context, user, id string) (*DocumentProperties, error) {
	n, err := s.getReadable(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if n.Kind != models.KindDocument {
		return nil, fmt.Errorf("%w: not a document: %s", common.ErrPathNotFound, id)
	}
	path, err := s.store.NodePath(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.store.CurrentVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.NotesByNode(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DocumentProperties{Node: n, Path: path, Current: current, Notes: notes}, nil
}

// getReadable loads a node and asserts read permission.
func (s *Service) getReadable(ctx context.Context, user, id string) (*models.Node, error) {
	n, err := s.store.FindByPk(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.security.CheckRead(ctx, user, n); err != nil {
		return nil, err
	}
	return n, nil
}
