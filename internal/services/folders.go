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

// Bootstrap ensures the repository root exists. Called once at startup,
// before any user operation.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		_, err := st.FindRoot(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrPathNotFound) {
			return err
		}
		root := &models.Node{
			ID:      uuid.New().String(),
			Kind:    models.KindFolder,
			Name:    "root",
			Context: common.ContextRoot,
			Author:  common.SystemUser,
			Created: time.Now().UTC(),
		}
		return st.CreateNode(ctx, root)
	})
}

// CreateFolder creates a folder under parentID. PRE hooks may rewrite the
// parent and name; the creator receives all grants, the rest of the grant
// maps are cloned from the parent.
func (s *Service) CreateFolder(ctx context.Context, user, parentID, name string) (*models.Node, error) {
	var folder *models.Node
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		parent, err := st.FindByPk(ctx, parentID)
		if err != nil {
			return err
		}

		env := &automation.Env{ParentID: parentID, ParentNode: parent, Name: name}
		if err := s.engine(st).Fire(ctx, models.EventFolderCreate, models.TimingPre, env); err != nil {
			return err
		}
		if env.ParentNode == nil {
			if env.ParentNode, err = st.FindByPk(ctx, env.ParentID); err != nil {
				return err
			}
		}
		parent = env.ParentNode

		if err := s.security.CheckRead(ctx, user, parent); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, user, parent); err != nil {
			return err
		}

		folder = &models.Node{
			ID:              uuid.New().String(),
			ParentID:        parent.ID,
			Kind:            models.KindFolder,
			Name:            env.Name,
			Context:         parent.Context,
			Author:          user,
			Created:         time.Now().UTC(),
			UserPermissions: cloneGrants(parent.UserPermissions),
			RolePermissions: cloneGrants(parent.RolePermissions),
		}
		folder.UserPermissions[user] = models.AllGrants

		if err := st.CreateNode(ctx, folder); err != nil {
			return err
		}

		post := &automation.Env{Node: folder}
		return s.engine(st).Fire(ctx, models.EventFolderCreate, models.TimingPost, post)
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, user, "CREATE_FOLDER", folder.ID, "", folder.Name)
	return folder, nil
}

// EnsureUserBaseFolders creates the user's personal, trash and mail folders
// on first use, plus the shared taxonomy root. Serialized per user so a
// first-login race cannot create duplicate base folders.
func (s *Service) EnsureUserBaseFolders(ctx context.Context, user string) error {
	s.userLocks.Lock(user)
	defer s.userLocks.Unlock(user)

	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		root, err := st.FindRoot(ctx)
		if err != nil {
			return err
		}

		for _, base := range []string{common.ContextPersonal, common.ContextTrash, common.ContextMail} {
			baseNode, err := ensureChildFolder(ctx, st, root, base, base, common.SystemUser, nil)
			if err != nil {
				return err
			}
			grants := map[string]models.Permission{user: models.AllGrants}
			if _, err := ensureChildFolder(ctx, st, baseNode, user, base+"/"+user, user, grants); err != nil {
				return err
			}
		}

		_, err = ensureChildFolder(ctx, st, root, common.ContextCategory, common.ContextCategory, common.SystemUser, nil)
		return err
	})
}

func ensureChildFolder(ctx context.Context, st *store.Store, parent *models.Node,
	name, context, author string, grants map[string]models.Permission) (*models.Node, error) {

	n, err := st.FindChildByName(ctx, parent.ID, name)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, common.ErrPathNotFound) {
		return nil, err
	}

	n = &models.Node{
		ID:              uuid.New().String(),
		ParentID:        parent.ID,
		Kind:            models.KindFolder,
		Name:            name,
		Context:         context,
		Author:          author,
		Created:         time.Now().UTC(),
		UserPermissions: grants,
	}
	if err := st.CreateNode(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// userTrashID resolves the user's trash folder, creating the base folders
// if this is the user's first repository interaction.
func (s *Service) userTrashID(ctx context.Context, user string) (string, error) {
	if err := s.EnsureUserBaseFolders(ctx, user); err != nil {
		return "", err
	}
	return s.store.ResolvePath(ctx, "/"+common.ContextTrash+"/"+user)
}
