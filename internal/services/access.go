package services

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/security"
	"github.com/avasilyev/docbase/internal/store"
)

// GrantUser merges bits into a user's grant on the node. With recursive the
// whole subtree is walked; nodes where the acting user lacks the security
// bit are skipped and reported, the walk continues (partial success).
func (s *Service) GrantUser(ctx context.Context, user, id, principal string, bits models.Permission, recursive bool) ([]security.GrantOutcome, error) {
	return s.changeGrants(ctx, user, id, principal, false, bits, true, recursive)
}

// RevokeUser clears bits from a user's grant on the node.
func (s *Service) RevokeUser(ctx context.Context, user, id, principal string, bits models.Permission, recursive bool) ([]security.GrantOutcome, error) {
	return s.changeGrants(ctx, user, id, principal, false, bits, false, recursive)
}

// GrantRole merges bits into a role's grant on the node.
func (s *Service) GrantRole(ctx context.Context, user, id, role string, bits models.Permission, recursive bool) ([]security.GrantOutcome, error) {
	return s.changeGrants(ctx, user, id, role, true, bits, true, recursive)
}

// RevokeRole clears bits from a role's grant on the node.
func (s *Service) RevokeRole(ctx context.Context, user, id, role string, bits models.Permission, recursive bool) ([]security.GrantOutcome, error) {
	return s.changeGrants(ctx, user, id, role, true, bits, false, recursive)
}

func (s *Service) changeGrants(ctx context.Context, user, id, principal string, isRole bool,
	bits models.Permission, grant, recursive bool) ([]security.GrantOutcome, error) {

	var outcomes []security.GrantOutcome
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		work := []string{id}
		for len(work) > 0 {
			cur := work[0]
			work = work[1:]

			outcome := s.changeNodeGrant(ctx, st, user, cur, principal, isRole, bits, grant)
			outcomes = append(outcomes, outcome)

			if !recursive {
				break
			}
			children, err := st.ChildIDs(ctx, cur)
			if err != nil {
				return err
			}
			work = append(work, children...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Service) changeNodeGrant(ctx context.Context, st *store.Store, user, id, principal string,
	isRole bool, bits models.Permission, grant bool) security.GrantOutcome {

	n, err := st.FindByPk(ctx, id)
	if err != nil {
		return security.GrantOutcome{NodeID: id, Err: err}
	}
	if err := s.security.CheckSecurity(ctx, user, n); err != nil {
		return security.GrantOutcome{NodeID: id, Err: err}
	}

	current := n.UserPermissions[principal]
	if isRole {
		current = n.RolePermissions[principal]
	}
	next := current | bits
	if !grant {
		next = current &^ bits
	}

	if err := st.SetPermission(ctx, id, principal, isRole, next); err != nil {
		return security.GrantOutcome{NodeID: id, Err: err}
	}
	return security.GrantOutcome{NodeID: id}
}
