package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/store"
)

// CreateMailRequest carries the inputs of a mail-item import, typically
// into the user's mail subtree.
type CreateMailRequest struct {
	User     string
	ParentID string
	Name     string

	From    string
	To      string
	Subject string
	Sent    time.Time
}

// CreateMail archives a mail item as a node. Mail items carry no content
// versions; attachments are imported as separate documents beneath them.
func (s *Service) CreateMail(ctx context.Context, req CreateMailRequest) (*models.Node, error) {
	var mail *models.Node
	err := s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		parent, err := st.FindByPk(ctx, req.ParentID)
		if err != nil {
			return err
		}
		if err := s.security.CheckRead(ctx, req.User, parent); err != nil {
			return err
		}
		if err := s.security.CheckWrite(ctx, req.User, parent); err != nil {
			return err
		}

		mail = &models.Node{
			ID:              uuid.New().String(),
			ParentID:        parent.ID,
			Kind:            models.KindMail,
			Name:            req.Name,
			Context:         parent.Context,
			Author:          req.User,
			Created:         time.Now().UTC(),
			UserPermissions: cloneGrants(parent.UserPermissions),
			RolePermissions: cloneGrants(parent.RolePermissions),
			Mail: &models.MailProps{
				From:    req.From,
				To:      req.To,
				Subject: req.Subject,
				Sent:    req.Sent,
			},
		}
		mail.UserPermissions[req.User] = models.AllGrants

		return st.CreateNode(ctx, mail)
	})
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, req.User, "CREATE_MAIL", mail.ID, "", mail.Name)
	return mail, nil
}
