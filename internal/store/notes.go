package store

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
)

// CreateNote appends a note to a node.
func (s *Store) CreateNote(ctx context.Context, n *models.Note) error {
	_, err := s.exec(ctx, `INSERT INTO notes (id, node_id, author, created, body) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.NodeID, n.Author, n.Created.Unix(), n.Text)
	return err
}

// NotesByNode lists a node's notes in creation order.
func (s *Store) NotesByNode(ctx context.Context, nodeID string) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, node_id, author, created, body FROM notes WHERE node_id=? ORDER BY created, id`), nodeID)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []*models.Note
	for rows.Next() {
		var n models.Note
		var created int64
		if err := rows.Scan(&n.ID, &n.NodeID, &n.Author, &created, &n.Text); err != nil {
			return nil, wrapDB(err)
		}
		n.Created = unixTime(created)
		out = append(out, &n)
	}
	return out, wrapDB(rows.Err())
}

// CreateBookmark stores a per-user bookmark on a node.
func (s *Store) CreateBookmark(ctx context.Context, b *models.Bookmark) error {
	_, err := s.exec(ctx, `INSERT INTO bookmarks (id, user_id, node_id, name) VALUES (?, ?, ?, ?)`,
		b.ID, b.UserID, b.NodeID, b.Name)
	return err
}

// BookmarksByUser lists a user's bookmarks.
func (s *Store) BookmarksByUser(ctx context.Context, user string) ([]*models.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, user_id, node_id, name FROM bookmarks WHERE user_id=? ORDER BY name`), user)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []*models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.NodeID, &b.Name); err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, &b)
	}
	return out, wrapDB(rows.Err())
}
