package store

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
)

// NodePermissions loads the user and role grant maps of a node.
func (s *Store) NodePermissions(ctx context.Context, nodeID string) (users, roles map[string]models.Permission, err error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT principal, is_role, bits FROM permissions WHERE node_id=?`), nodeID)
	if err != nil {
		return nil, nil, wrapDB(err)
	}
	defer rows.Close()

	users = make(map[string]models.Permission)
	roles = make(map[string]models.Permission)

	for rows.Next() {
		var principal string
		var isRole bool
		var bits int
		if err := rows.Scan(&principal, &isRole, &bits); err != nil {
			return nil, nil, wrapDB(err)
		}
		if isRole {
			roles[principal] = models.Permission(bits)
		} else {
			users[principal] = models.Permission(bits)
		}
	}
	return users, roles, wrapDB(rows.Err())
}

// SetPermission upserts a grant row; a zero bitmask removes the row.
func (s *Store) SetPermission(ctx context.Context, nodeID, principal string, isRole bool, bits models.Permission) error {
	if bits == 0 {
		_, err := s.exec(ctx, `DELETE FROM permissions WHERE node_id=? AND principal=? AND is_role=?`,
			nodeID, principal, isRole)
		return err
	}

	_, err := s.exec(ctx, `
		INSERT INTO permissions (node_id, principal, is_role, bits) VALUES (?, ?, ?, ?)
		ON CONFLICT (node_id, principal, is_role) DO UPDATE SET bits = EXCLUDED.bits`,
		nodeID, principal, isRole, int(bits))
	return err
}
