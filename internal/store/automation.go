package store

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
)

// CreateRule persists an automation rule together with its validations and
// actions.
func (s *Store) CreateRule(ctx context.Context, r *models.AutomationRule) error {
	_, err := s.exec(ctx, `
		INSERT INTO automation_rules (id, name, event, timing, rule_order, exclusive, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Event, r.Timing, r.Order, r.Exclusive, r.Active)
	if err != nil {
		return err
	}

	for _, v := range r.Validations {
		if err := s.createRuleItem(ctx, r.ID, "validation", v); err != nil {
			return err
		}
	}
	for _, a := range r.Actions {
		if err := s.createRuleItem(ctx, r.ID, "action", a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createRuleItem(ctx context.Context, ruleID, kind string, it models.AutomationItem) error {
	_, err := s.exec(ctx, `
		INSERT INTO automation_items (id, rule_id, kind, item_order, type, param0, param1, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, ruleID, kind, it.Order, it.Type, it.Param0, it.Param1, it.Active)
	return err
}

// RulesByEvent fetches the active rules for one (event, timing) pair,
// ordered ascending, with their items hydrated.
func (s *Store) RulesByEvent(ctx context.Context, event, timing string) ([]*models.AutomationRule, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, name, event, timing, rule_order, exclusive, active
		FROM automation_rules
		WHERE event=? AND timing=? AND active=?
		ORDER BY rule_order, id`), event, timing, true)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []*models.AutomationRule
	for rows.Next() {
		var r models.AutomationRule
		if err := rows.Scan(&r.ID, &r.Name, &r.Event, &r.Timing, &r.Order, &r.Exclusive, &r.Active); err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err)
	}

	for _, r := range out {
		if err := s.hydrateRule(ctx, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) hydrateRule(ctx context.Context, r *models.AutomationRule) error {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, rule_id, kind, item_order, type, param0, param1, active
		FROM automation_items WHERE rule_id=? AND active=? ORDER BY item_order, id`), r.ID, true)
	if err != nil {
		return wrapDB(err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.AutomationItem
		var kind string
		if err := rows.Scan(&it.ID, &it.RuleID, &kind, &it.Order, &it.Type, &it.Param0, &it.Param1, &it.Active); err != nil {
			return wrapDB(err)
		}
		if kind == "validation" {
			r.Validations = append(r.Validations, it)
		} else {
			r.Actions = append(r.Actions, it)
		}
	}
	return wrapDB(rows.Err())
}

// SetRuleActive toggles a rule without touching its items.
func (s *Store) SetRuleActive(ctx context.Context, id string, active bool) error {
	_, err := s.exec(ctx, `UPDATE automation_rules SET active=? WHERE id=?`, active, id)
	return err
}

// DeleteRule removes a rule and its items.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM automation_items WHERE rule_id=?`, id); err != nil {
		return err
	}
	_, err := s.exec(ctx, `DELETE FROM automation_rules WHERE id=?`, id)
	return err
}
