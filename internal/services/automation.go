package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/avasilyev/docbase/internal/automation"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/store"
)

// CreateAutomationRule stores a rule. Folder-valued item parameters arrive
// as human-readable paths and are translated to node ids here, at the
// administrative edge; the engine only ever sees ids.
func (s *Service) CreateAutomationRule(ctx context.Context, r *models.AutomationRule) error {
	return s.withTx(ctx, func(ctx context.Context, st *store.Store) error {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if err := parseFolderParams(ctx, st, r.Validations); err != nil {
			return err
		}
		if err := parseFolderParams(ctx, st, r.Actions); err != nil {
			return err
		}
		for i := range r.Validations {
			if r.Validations[i].ID == "" {
				r.Validations[i].ID = uuid.New().String()
			}
			r.Validations[i].RuleID = r.ID
		}
		for i := range r.Actions {
			if r.Actions[i].ID == "" {
				r.Actions[i].ID = uuid.New().String()
			}
			r.Actions[i].RuleID = r.ID
		}
		return st.CreateRule(ctx, r)
	})
}

func parseFolderParams(ctx context.Context, st *store.Store, items []models.AutomationItem) error {
	for i := range items {
		id, err := automation.ParseFolderParam(ctx, st, items[i].Type, items[i].Param0)
		if err != nil {
			return err
		}
		items[i].Param0 = id
	}
	return nil
}

// RenderAutomationRule returns a display copy of the rule with folder ids
// rendered back to paths.
func (s *Service) RenderAutomationRule(ctx context.Context, r *models.AutomationRule) (*models.AutomationRule, error) {
	out := *r
	out.Validations = append([]models.AutomationItem(nil), r.Validations...)
	out.Actions = append([]models.AutomationItem(nil), r.Actions...)

	for _, items := range [][]models.AutomationItem{out.Validations, out.Actions} {
		for i := range items {
			path, err := automation.RenderFolderParam(ctx, s.store, items[i].Type, items[i].Param0)
			if err != nil {
				return nil, err
			}
			items[i].Param0 = path
		}
	}
	return &out, nil
}

// SetAutomationRuleActive toggles a rule.
func (s *Service) SetAutomationRuleActive(ctx context.Context, id string, active bool) error {
	return s.store.SetRuleActive(ctx, id, active)
}

// DeleteAutomationRule removes a rule and its items.
func (s *Service) DeleteAutomationRule(ctx context.Context, id string) error {
	return s.store.DeleteRule(ctx, id)
}
