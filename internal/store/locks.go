package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/google/uuid"
)

// Lock acquires the advisory lock for user on a document node. Fails with
// ErrLock when the node is already locked, by anyone.
func (s *Store) Lock(ctx context.Context, user, id string) (*models.Lock, error) {
	n, err := s.FindByPk(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Kind != models.KindDocument {
		return nil, fmt.Errorf("%w: not a document: %s", common.ErrLock, id)
	}
	if n.IsLocked() {
		return nil, fmt.Errorf("%w: node already locked", common.ErrLock)
	}

	lock := &models.Lock{
		Token:   uuid.New().String(),
		Owner:   user,
		Created: time.Now().UTC(),
	}

	_, err = s.exec(ctx, `UPDATE nodes SET lock_token=?, lock_owner=?, lock_created=? WHERE id=?`,
		lock.Token, lock.Owner, lock.Created.Unix(), id)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// Unlock releases the advisory lock. Fails with ErrLock when the node is
// not locked, or locked by a different owner and force is false.
func (s *Store) Unlock(ctx context.Context, user, id string, force bool) error {
	n, err := s.FindByPk(ctx, id)
	if err != nil {
		return err
	}
	if !n.IsLocked() {
		return fmt.Errorf("%w: node not locked", common.ErrLock)
	}
	if !force && n.Document.Lock.Owner != user {
		return fmt.Errorf("%w: node not locked by user", common.ErrLock)
	}

	_, err = s.exec(ctx, `UPDATE nodes SET lock_token=NULL, lock_owner=NULL, lock_created=NULL WHERE id=?`, id)
	return err
}

// CheckWriteLock asserts that a mutating operation may proceed: the node is
// unlocked, or locked by the acting user. Called inside the same unit of
// work as the mutation it guards.
func CheckWriteLock(user string, n *models.Node) error {
	if n.IsLocked() && n.Document.Lock.Owner != user {
		return fmt.Errorf("%w: node locked by %s", common.ErrLock, n.Document.Lock.Owner)
	}
	return nil
}

// SetCheckedOut flips the checkout flag of a document.
func (s *Store) SetCheckedOut(ctx context.Context, id string, checkedOut bool) error {
	_, err := s.exec(ctx, `UPDATE nodes SET checked_out=? WHERE id=?`, checkedOut, id)
	return err
}
