package automation

import (
	"context"
	"fmt"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/logging"
	"github.com/avasilyev/docbase/internal/models"
)

// RuleSource fetches the active rules for one (event, timing) pair, ordered
// ascending. Implemented by the store, bound to the caller's transaction.
type RuleSource interface {
	RulesByEvent(ctx context.Context, event, timing string) ([]*models.AutomationRule, error)
}

// Engine evaluates configured rules around lifecycle events.
type Engine struct {
	rules RuleSource
	log   logging.Logger
}

func NewEngine(rules RuleSource, log logging.Logger) *Engine {
	return &Engine{rules: rules, log: log}
}

// Fire runs the pipeline for (event, timing) over env. Rules run in
// ascending order. A rule whose validations all pass runs its actions; an
// exclusive rule that fired this way stops evaluation of the remaining
// rules. A rule with a failing validation never blocks later rules, even
// when marked exclusive. Any validation or action error aborts with an
// AutomationException so the enclosing unit of work rolls back.
func (e *Engine) Fire(ctx context.Context, event, timing string, env *Env) error {
	rules, err := e.rules.RulesByEvent(ctx, event, timing)
	if err != nil {
		return err
	}

	for _, r := range rules {
		fired, err := e.evalRule(ctx, r, env)
		if err != nil {
			return fmt.Errorf("%w: rule %s (%s): %v", common.ErrAutomation, r.Name, r.ID, err)
		}
		if fired {
			e.log.Info(ctx, "automation rule fired", "rule", r.Name, "event", event, "timing", timing)
			if r.Exclusive {
				break
			}
		}
	}
	return nil
}

func (e *Engine) evalRule(ctx context.Context, r *models.AutomationRule, env *Env) (bool, error) {
	for _, it := range r.Validations {
		v, err := buildValidation(it)
		if err != nil {
			return false, err
		}
		ok, err := v.Validate(ctx, env)
		if err != nil {
			return false, fmt.Errorf("validation %s: %w", it.Type, err)
		}
		if !ok {
			return false, nil
		}
	}

	for _, it := range r.Actions {
		a, err := buildAction(it)
		if err != nil {
			return false, err
		}
		if err := a.Execute(ctx, env); err != nil {
			return false, fmt.Errorf("action %s: %w", it.Type, err)
		}
	}
	return true, nil
}
