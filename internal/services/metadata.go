package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avasilyev/docbase/internal/automation"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/store"
)

// AddNote attaches a note to a node.
func (s *Service) AddNote(ctx context.Context, user, nodeID, text string) (*models.Note, error) {
	var note *models.Note
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, nodeID)
		if err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		note = &models.Note{
			ID: uuid.New().String(), NodeID: nodeID, Author: user,
			Created: time.Now().UTC(), Text: text,
		}
		return st.CreateNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetNotes lists a node's notes, oldest first.
func (s *Service) GetNotes(ctx context.Context, user, nodeID string) ([]*models.Note, error) {
	if _, err := s.getReadable(ctx, user, nodeID); err != nil {
		return nil, err
	}
	return s.store.NotesByNode(ctx, nodeID)
}

// AddBookmark stores a per-user pointer to a node.
func (s *Service) AddBookmark(ctx context.Context, user, nodeID, name string) (*models.Bookmark, error) {
	if _, err := s.getReadable(ctx, user, nodeID); err != nil {
		return nil, err
	}
	b := &models.Bookmark{ID: uuid.New().String(), UserID: user, NodeID: nodeID, Name: name}
	if err := s.store.CreateBookmark(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookmarks lists the user's bookmarks.
func (s *Service) GetBookmarks(ctx context.Context, user string) ([]*models.Bookmark, error) {
	return s.store.BookmarksByUser(ctx, user)
}

// AddKeyword tags a document.
func (s *Service) AddKeyword(ctx context.Context, user, nodeID, keyword string) error {
	return s.writeMetadata(ctx, user, nodeID, func(ctx context.Context, st *store.Store) error {
		return st.AddKeyword(ctx, nodeID, keyword)
	})
}

// RemoveKeyword untags a document.
func (s *Service) RemoveKeyword(ctx context.Context, user, nodeID, keyword string) error {
	return s.writeMetadata(ctx, user, nodeID, func(ctx context.Context, st *store.Store) error {
		return st.RemoveKeyword(ctx, nodeID, keyword)
	})
}

// AddCategory links a document to a taxonomy folder. The link is weak: the
// category folder may later disappear and the document stays valid.
func (s *Service) AddCategory(ctx context.Context, user, nodeID, categoryID string) error {
	return s.writeMetadata(ctx, user, nodeID, func(ctx context.Context, st *store.Store) error {
		return st.AddCategory(ctx, nodeID, categoryID)
	})
}

// RemoveCategory unlinks a document from a taxonomy folder.
func (s *Service) RemoveCategory(ctx context.Context, user, nodeID, categoryID string) error {
	return s.writeMetadata(ctx, user, nodeID, func(ctx context.Context, st *store.Store) error {
		return st.RemoveCategory(ctx, nodeID, categoryID)
	})
}

// Subscribe adds the user to a node's subscriptor set.
func (s *Service) Subscribe(ctx context.Context, user, nodeID string) error {
	if _, err := s.getReadable(ctx, user, nodeID); err != nil {
		return err
	}
	return s.store.AddSubscriptor(ctx, nodeID, user)
}

// Unsubscribe removes the user from a node's subscriptor set.
func (s *Service) Unsubscribe(ctx context.Context, user, nodeID string) error {
	return s.store.RemoveSubscriptor(ctx, nodeID, user)
}

// AddPropertyGroup attaches a property group to a document and fires the
// property_group_add POST hooks.
func (s *Service) AddPropertyGroup(ctx context.Context, user, nodeID, group string, props []models.NodeProperty) error {
	return s.setPropertyGroup(ctx, user, nodeID, group, props, models.EventPropertyGroupAdd)
}

// SetPropertyGroup replaces the values of an attached property group and
// fires the property_group_set POST hooks.
func (s *Service) SetPropertyGroup(ctx context.Context, user, nodeID, group string, props []models.NodeProperty) error {
	return s.setPropertyGroup(ctx, user, nodeID, group, props, models.EventPropertyGroupSet)
}

func (s *Service) setPropertyGroup(ctx context.Context, user, nodeID, group string,
	props []models.NodeProperty, event string) error {

	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, nodeID)
		if err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}
		if err := st.SetPropertyGroup(ctx, nodeID, group, props); err != nil {
			return err
		}

		if n, err = st.FindByPk(ctx, nodeID); err != nil {
			return err
		}
		return s.engine(st).Fire(ctx, event, models.TimingPost, &automation.Env{Node: n})
	})
}

// RemovePropertyGroup detaches a property group from a document.
func (s *Service) RemovePropertyGroup(ctx context.Context, user, nodeID, group string) error {
	return s.writeMetadata(ctx, user, nodeID, func(ctx context.Context, st *store.Store) error {
		return st.RemovePropertyGroup(ctx, nodeID, group)
	})
}

func (s *Service) writeMetadata(ctx context.Context, user, nodeID string,
	fn func(ctx context.Context, st *store.Store) error) error {

	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		n, err := st.FindByPk(ctx, nodeID)
		if err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, n); err != nil {
			return err
		}
		if err := store.CheckWriteLock(user, n); err != nil {
			return err
		}
		return fn(ctx, st)
	})
}

// FindByCategory lists the documents referencing a taxonomy folder, pruned
// by read permission.
func (s *Service) FindByCategory(ctx context.Context, user, categoryID string) ([]*models.Node, error) {
	nodes, err := s.store.FindByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return s.security.PruneList(ctx, user, nodes)
}

// FindByKeyword lists the documents tagged with a keyword, pruned by read
// permission.
func (s *Service) FindByKeyword(ctx context.Context, user, keyword string) ([]*models.Node, error) {
	nodes, err := s.store.FindByKeyword(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return s.security.PruneList(ctx, user, nodes)
}

// FindByPropertyValue lists the documents holding a property value, pruned
// by read permission.
func (s *Service) FindByPropertyValue(ctx context.Context, user, group, name, value string) ([]*models.Node, error) {
	nodes, err := s.store.FindByPropertyValue(ctx, group, name, value)
	if err != nil {
		return nil, err
	}
	return s.security.PruneList(ctx, user, nodes)
}
