// Package security evaluates the per-node permission bitmask for an acting
// principal: own user grants unioned with the grants of every role the
// principal holds.
package security

import (
	"context"
	"fmt"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/models"
)

// PrincipalResolver resolves a principal's effective roles. Backed by LDAP
// or a database outside the core; the evaluator only consumes this contract.
type PrincipalResolver interface {
	RolesByUser(ctx context.Context, user string) ([]string, error)
}

// StaticResolver is a fixed user-to-roles map, used in tests and in
// single-box deployments configured from a file.
type StaticResolver map[string][]string

func (r StaticResolver) RolesByUser(_ context.Context, user string) ([]string, error) {
	return r[user], nil
}

// Evaluator checks permission bits against a node's grant maps.
type Evaluator struct {
	resolver PrincipalResolver
}

func NewEvaluator(resolver PrincipalResolver) *Evaluator {
	return &Evaluator{resolver: resolver}
}

// Effective returns the principal's resolved bitmask on the node. The
// system user holds every grant implicitly.
func (e *Evaluator) Effective(ctx context.Context, user string, n *models.Node) (models.Permission, error) {
	if user == common.SystemUser {
		return models.AllGrants, nil
	}

	perms := n.UserPermissions[user]

	roles, err := e.resolver.RolesByUser(ctx, user)
	if err != nil {
		return 0, err
	}
	for _, role := range roles {
		perms |= n.RolePermissions[role]
	}

	return perms, nil
}

func (e *Evaluator) check(ctx context.Context, user string, n *models.Node, want models.Permission, what string) error {
	perms, err := e.Effective(ctx, user, n)
	if err != nil {
		return err
	}
	if !perms.Has(want) {
		return fmt.Errorf("%w: %s on %s", common.ErrAccessDenied, what, n.ID)
	}
	return nil
}

func (e *Evaluator) CheckRead(ctx context.Context, user string, n *models.Node) error {
	return e.check(ctx, user, n, models.PermRead, "read")
}

func (e *Evaluator) CheckWrite(ctx context.Context, user string, n *models.Node) error {
	return e.check(ctx, user, n, models.PermWrite, "write")
}

func (e *Evaluator) CheckDelete(ctx context.Context, user string, n *models.Node) error {
	return e.check(ctx, user, n, models.PermDelete, "delete")
}

func (e *Evaluator) CheckSecurity(ctx context.Context, user string, n *models.Node) error {
	return e.check(ctx, user, n, models.PermSecurity, "security")
}

// CanRead is the boolean form of CheckRead, used by list pruning.
func (e *Evaluator) CanRead(ctx context.Context, user string, n *models.Node) (bool, error) {
	perms, err := e.Effective(ctx, user, n)
	if err != nil {
		return false, err
	}
	return perms.Has(models.PermRead), nil
}

// PruneList filters out every node the principal cannot read. Applied to
// every bulk query result so listings never leak unauthorized nodes.
func (e *Evaluator) PruneList(ctx context.Context, user string, nodes []*models.Node) ([]*models.Node, error) {
	out := nodes[:0]
	for _, n := range nodes {
		ok, err := e.CanRead(ctx, user, n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// GrantOutcome is the per-node result of a recursive grant or revoke walk.
// The walk continues past failing nodes; callers get the full picture.
type GrantOutcome struct {
	NodeID string
	Err    error
}
