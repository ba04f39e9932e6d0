package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avasilyev/docbase/internal/automation"
	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/store"
)

// GetNode loads a node by id, asserting read permission.
func (s *Service) GetNode(ctx context.Context, user, id string) (*models.Node, error) {
	return s.getReadable(ctx, user, id)
}

// GetNodeByPath resolves an absolute path to a node.
func (s *Service) GetNodeByPath(ctx context.Context, user, path string) (*models.Node, error) {
	id, err := s.store.ResolvePath(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.getReadable(ctx, user, id)
}

// GetPath renders a node's absolute path.
func (s *Service) GetPath(ctx context.Context, user, id string) (string, error) {
	if _, err := s.getReadable(ctx, user, id); err != nil {
		return "", err
	}
	return s.store.NodePath(ctx, id)
}

// GetChildren lists a folder's children, pruned by read permission so
// results never leak unauthorized nodes.
func (s *Service) GetChildren(ctx context.Context, user, id string) ([]*models.Node, error) {
	if _, err := s.getReadable(ctx, user, id); err != nil {
		return nil, err
	}
	children, err := s.store.FindByParent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.security.PruneList(ctx, user, children)
}

// Rename changes the node's name, re-checking the sibling collision and the
// advisory lock inside the unit of work.
func (s *Service) Rename(ctx context.Context, user, id, newName string) (*models.Node, error) {
	var renamed *models.Node
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if err := s.security.CheckRead(ctx, user, n); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}
		if n.Name != newName {
			if err := st.Rename(ctx, id, newName); err != nil {
				return err
			}
		}
		renamed, err = st.FindByPk(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, user, "RENAME_NODE", id, "", renamed.Name)
	return renamed, nil
}

// Move re-parents a node. Documents fire document_move PRE hooks, which may
// redirect the destination. When the destination's context differs, the
// context tag is rewritten over the whole moved subtree.
func (s *Service) Move(ctx context.Context, user, id, dstID string) error {
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		dst, err := st.FindByPk(ctx, dstID)
		if err != nil {
			return err
		}
		if err := s.security.CheckRead(ctx, user, n); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, dst); err != nil {
			return err
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}

		if n.Kind == models.KindDocument {
			env := &automation.Env{Node: n, ParentID: dst.ID, ParentNode: dst}
			if err := s.engine(st).Fire(ctx, models.EventDocumentMove, models.TimingPre, env); err != nil {
				return err
			}
			if env.ParentID != dst.ID {
				if dst, err = st.FindByPk(ctx, env.ParentID); err != nil {
					return err
				}
				if err := s.security.CheckWrite(ctx, user, dst); err != nil {
					return err
				}
			}
		}

		if err := st.Move(ctx, id, dst.ID); err != nil {
			return err
		}
		if dst.Context != n.Context {
			if err := setContextSubtree(ctx, st, id, dst.Context); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logActivity(ctx, user, "MOVE_NODE", id, "", dstID)
	return nil
}

// setContextSubtree rewrites the context tag of a node and every descendant.
func setContextSubtree(ctx context.Context, st *store.Store, id, context string) error {
	work := []string{id}
	for len(work) > 0 {
		cur := work[0]
		work = work[1:]
		if err := st.SetContext(ctx, cur, context); err != nil {
			return err
		}
		children, err := st.ChildIDs(ctx, cur)
		if err != nil {
			return err
		}
		work = append(work, children...)
	}
	return nil
}

// ExtendedAttributes selects which document metadata a Copy clones.
type ExtendedAttributes struct {
	Keywords       bool
	Categories     bool
	Notes          bool
	PropertyGroups bool
}

// Copy duplicates a subtree under a new parent. Documents are copied with
// their current version's content only; the acting user becomes the author
// and creator of every copy, and permissions are cloned from the
// destination parent.
func (s *Service) Copy(ctx context.Context, user, id, dstID string, attrs ExtendedAttributes) (*models.Node, error) {
	var (
		root          *models.Node
		persistedRefs []string
	)
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		src, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		dst, err := st.FindByPk(ctx, dstID)
		if err != nil {
			return err
		}
		if err := s.security.CheckRead(ctx, user, src); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, dst); err != nil {
			return err
		}
		root, err = s.copyNode(ctx, st, user, src, dst, attrs, &persistedRefs)
		return err
	})
	if err != nil {
		for _, ref := range persistedRefs {
			if derr := s.blobs.Delete(ctx, ref); derr != nil {
				s.log.Warn(ctx, "orphaned blob cleanup failed", "ref", ref, "error", derr)
			}
		}
		return nil, err
	}
	s.logActivity(ctx, user, "COPY_NODE", id, "", root.ID)
	return root, nil
}

func (s *Service) copyNode(ctx context.Context, st *store.Store, user string, src, dst *models.Node,
	attrs ExtendedAttributes, persistedRefs *[]string) (*models.Node, error) {

	cp := &models.Node{
		ID:              uuid.New().String(),
		ParentID:        dst.ID,
		Kind:            src.Kind,
		Name:            src.Name,
		Context:         dst.Context,
		Author:          user,
		Created:         time.Now().UTC(),
		UserPermissions: cloneGrants(dst.UserPermissions),
		RolePermissions: cloneGrants(dst.RolePermissions),
	}
	cp.UserPermissions[user] = models.AllGrants

	switch src.Kind {
	case models.KindDocument:
		d := &models.DocumentProps{MimeType: src.Document.MimeType}
		if attrs.Keywords {
			d.Keywords = append([]string(nil), src.Document.Keywords...)
		}
		if attrs.Categories {
			d.Categories = append([]string(nil), src.Document.Categories...)
		}
		if attrs.PropertyGroups {
			d.Properties = append([]models.NodeProperty(nil), src.Document.Properties...)
		}
		cp.Document = d
	case models.KindMail:
		m := *src.Mail
		cp.Mail = &m
	}

	if err := st.CreateNode(ctx, cp); err != nil {
		return nil, err
	}

	if src.Kind == models.KindDocument {
		if err := s.copyCurrentVersion(ctx, st, user, src.ID, cp.ID, persistedRefs); err != nil {
			return nil, err
		}
		if attrs.Notes {
			notes, err := st.NotesByNode(ctx, src.ID)
			if err != nil {
				return nil, err
			}
			for _, note := range notes {
				clone := &models.Note{
					ID: uuid.New().String(), NodeID: cp.ID, Author: note.Author,
					Created: note.Created, Text: note.Text,
				}
				if err := st.CreateNote(ctx, clone); err != nil {
					return nil, err
				}
			}
		}
	}

	childIDs, err := st.ChildIDs(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	for _, childID := range childIDs {
		child, err := st.FindByPk(ctx, childID)
		if err != nil {
			return nil, err
		}
		if _, err := s.copyNode(ctx, st, user, child, cp, attrs, persistedRefs); err != nil {
			return nil, err
		}
	}
	return cp, nil
}

func (s *Service) copyCurrentVersion(ctx context.Context, st *store.Store, user, srcID, dstID string, persistedRefs *[]string) error {
	current, err := st.CurrentVersion(ctx, srcID)
	if err != nil {
		return err
	}
	version := &models.DocumentVersion{
		ID:         uuid.New().String(),
		DocumentID: dstID,
		Label:      s.numerator.InitialLabel(),
		Author:     user,
		Created:    time.Now().UTC(),
		Size:       current.Size,
		MimeType:   current.MimeType,
		Current:    true,
	}
	version.ContentRef = version.ID
	if err := st.CreateVersion(ctx, version); err != nil {
		return err
	}

	rc, err := s.blobs.Read(ctx, current.ContentRef)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := s.blobs.Persist(ctx, version.ContentRef, rc); err != nil {
		return err
	}
	*persistedRefs = append(*persistedRefs, version.ContentRef)
	return nil
}

// Delete soft-deletes a node into the acting user's trash folder, under a
// collision-free name. The deleted subtree is retagged to the trash context
// so it counts against the trash share of the user's quota.
func (s *Service) Delete(ctx context.Context, user, id string) error {
	trashID, err := s.userTrashID(ctx, user)
	if err != nil {
		return err
	}
	var finalName string
	err = s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if err != nil {
			return err
		}
		if err := s.security.CheckDelete(ctx, user, n); err != nil {
			return err
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}

		if finalName, err = st.SoftDelete(ctx, id, trashID); err != nil {
			return err
		}
		return setContextSubtree(ctx, st, id, trashContext(user))
	})
	if err != nil {
		return err
	}
	s.logActivity(ctx, user, "DELETE_NODE", id, "", finalName)
	return nil
}

// Purge permanently removes a node and, for folders, its whole subtree:
// versions, notes, bookmarks, collections and grants cascade with each
// node. Purging an already-removed node is a no-op. Blobs are released
// only after the transaction commits, so a rollback never loses content.
func (s *Service) Purge(ctx context.Context, user, id string) error {
	var (
		refs []string
		path string
	)
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, id)
		if errors.Is(err, common.ErrPathNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.security.CheckDelete(ctx, user, n); err != nil {
			return err
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}
		if path, err = st.NodePath(ctx, id); err != nil {
			return err
		}
		return purgeNode(ctx, st, id, &refs)
	})
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if derr := s.blobs.Delete(ctx, ref); derr != nil {
			s.log.Warn(ctx, "blob release failed after purge", "ref", ref, "error", derr)
		}
	}
	if path != "" {
		s.logActivity(ctx, user, "PURGE_NODE", id, path, "")
	}
	return nil
}

// purgeNode removes a subtree depth-first: children before the node itself,
// versions and dependents before the node row.
func purgeNode(ctx context.Context, st *store.Store, id string, refs *[]string) error {
	childIDs, err := st.ChildIDs(ctx, id)
	if err != nil {
		return err
	}
	for _, childID := range childIDs {
		if err := purgeNode(ctx, st, childID, refs); err != nil {
			return err
		}
	}

	versionRefs, err := st.DeleteVersions(ctx, id)
	if err != nil {
		return err
	}
	*refs = append(*refs, versionRefs...)

	if err := st.DeleteDependents(ctx, id); err != nil {
		return err
	}
	return st.DeleteNode(ctx, id)
}

// GetSubtreeSize sums the current-version sizes over a subtree.
func (s *Service) GetSubtreeSize(ctx context.Context, user, id string) (int64, error) {
	n, err := s.getReadable(ctx, user, id)
	if err != nil {
		return 0, err
	}
	return s.subtreeSize(ctx, n.ID)
}

func (s *Service) subtreeSize(ctx context.Context, id string) (int64, error) {
	n, err := s.store.FindByPk(ctx, id)
	if err != nil {
		return 0, err
	}
	var total int64
	if n.Kind == models.KindDocument {
		version, err := s.store.CurrentVersion(ctx, id)
		if err != nil {
			return 0, err
		}
		total += version.Size
	}
	childIDs, err := s.store.ChildIDs(ctx, id)
	if err != nil {
		return 0, err
	}
	for _, childID := range childIDs {
		size, err := s.subtreeSize(ctx, childID)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}
