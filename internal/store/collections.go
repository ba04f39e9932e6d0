package store

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
)

// AddKeyword tags a document. Adding an existing keyword is a no-op.
func (s *Store) AddKeyword(ctx context.Context, nodeID, keyword string) error {
	_, err := s.exec(ctx, `
		INSERT INTO keywords (node_id, keyword) VALUES (?, ?)
		ON CONFLICT (node_id, keyword) DO NOTHING`, nodeID, keyword)
	return err
}

// RemoveKeyword untags a document.
func (s *Store) RemoveKeyword(ctx context.Context, nodeID, keyword string) error {
	_, err := s.exec(ctx, `DELETE FROM keywords WHERE node_id=? AND keyword=?`, nodeID, keyword)
	return err
}

// AddCategory links a document to a taxonomy folder. The reference is weak;
// nothing validates that the folder still exists.
func (s *Store) AddCategory(ctx context.Context, nodeID, categoryID string) error {
	_, err := s.exec(ctx, `
		INSERT INTO categories (node_id, category_id) VALUES (?, ?)
		ON CONFLICT (node_id, category_id) DO NOTHING`, nodeID, categoryID)
	return err
}

// RemoveCategory unlinks a document from a taxonomy folder.
func (s *Store) RemoveCategory(ctx context.Context, nodeID, categoryID string) error {
	_, err := s.exec(ctx, `DELETE FROM categories WHERE node_id=? AND category_id=?`, nodeID, categoryID)
	return err
}

// AddSubscriptor subscribes a user to node events.
func (s *Store) AddSubscriptor(ctx context.Context, nodeID, userID string) error {
	_, err := s.exec(ctx, `
		INSERT INTO subscriptors (node_id, user_id) VALUES (?, ?)
		ON CONFLICT (node_id, user_id) DO NOTHING`, nodeID, userID)
	return err
}

// RemoveSubscriptor unsubscribes a user.
func (s *Store) RemoveSubscriptor(ctx context.Context, nodeID, userID string) error {
	_, err := s.exec(ctx, `DELETE FROM subscriptors WHERE node_id=? AND user_id=?`, nodeID, userID)
	return err
}

// HasPropertyGroup reports whether a document carries any value of the
// given property group.
func (s *Store) HasPropertyGroup(ctx context.Context, nodeID, group string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM node_properties WHERE node_id=? AND grp=?`), nodeID, group).Scan(&count)
	if err != nil {
		return false, wrapDB(err)
	}
	return count > 0, nil
}

// SetPropertyGroup replaces every value of one property group on a document.
func (s *Store) SetPropertyGroup(ctx context.Context, nodeID, group string, props []models.NodeProperty) error {
	if _, err := s.exec(ctx, `DELETE FROM node_properties WHERE node_id=? AND grp=?`, nodeID, group); err != nil {
		return err
	}
	for _, p := range props {
		if _, err := s.exec(ctx, `INSERT INTO node_properties (node_id, grp, name, value) VALUES (?, ?, ?, ?)`,
			nodeID, group, p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// RemovePropertyGroup drops every value of one property group.
func (s *Store) RemovePropertyGroup(ctx context.Context, nodeID, group string) error {
	_, err := s.exec(ctx, `DELETE FROM node_properties WHERE node_id=? AND grp=?`, nodeID, group)
	return err
}
