package automation

import (
	"context"
	"fmt"

	"github.com/avasilyev/docbase/internal/models"
)

// Validation is a boolean predicate over the environment. A false result
// skips the rule's actions; an error aborts the enclosing operation.
type Validation interface {
	Validate(ctx context.Context, env *Env) (bool, error)
}

// Action is a side-effecting transform of the environment.
type Action interface {
	Execute(ctx context.Context, env *Env) error
}

type validationFactory func(param0, param1 string) (Validation, error)
type actionFactory func(param0, param1 string) (Action, error)

var validationFactories = map[string]validationFactory{}
var actionFactories = map[string]actionFactory{}

func registerValidation(typ string, f validationFactory) {
	validationFactories[typ] = f
}

func registerAction(typ string, f actionFactory) {
	actionFactories[typ] = f
}

// ValidationTypes lists the registered validation type names, for the
// administrative surface.
func ValidationTypes() []string {
	return typeNames(validationFactories)
}

// ActionTypes lists the registered action type names.
func ActionTypes() []string {
	return typeNames(actionFactories)
}

func typeNames[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func buildValidation(it models.AutomationItem) (Validation, error) {
	f, ok := validationFactories[it.Type]
	if !ok {
		return nil, fmt.Errorf("unknown validation type %q", it.Type)
	}
	return f(it.Param0, it.Param1)
}

func buildAction(it models.AutomationItem) (Action, error) {
	f, ok := actionFactories[it.Type]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", it.Type)
	}
	return f(it.Param0, it.Param1)
}
