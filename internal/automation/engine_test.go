package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/logging"
	"github.com/avasilyev/docbase/internal/models"
)

type fakeRules struct {
	rules []*models.AutomationRule
}

func (f *fakeRules) RulesByEvent(context.Context, string, string) ([]*models.AutomationRule, error) {
	return f.rules, nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func rule(id string, order int, exclusive bool, validations, actions []models.AutomationItem) *models.AutomationRule {
	return &models.AutomationRule{
		ID: id, Name: id, Event: models.EventDocumentCreate, Timing: models.TimingPre,
		Order: order, Exclusive: exclusive, Active: true,
		Validations: validations, Actions: actions,
	}
}

func TestFireRunsActionsWhenValidationsPass(t *testing.T) {
	src := &fakeRules{rules: []*models.AutomationRule{
		rule("r1", 1, false,
			[]models.AutomationItem{{Type: ValidationNameContains, Param0: "report"}},
			[]models.AutomationItem{{Type: ActionAddKeyword, Param0: "finance"}}),
	}}
	eng := NewEngine(src, testLogger())

	env := &Env{Name: "report.pdf"}
	require.NoError(t, eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, env))
	assert.Equal(t, []string{"finance"}, env.Keywords)
}

func TestFireSkipsActionsWhenValidationFails(t *testing.T) {
	src := &fakeRules{rules: []*models.AutomationRule{
		rule("r1", 1, false,
			[]models.AutomationItem{{Type: ValidationNameContains, Param0: "invoice"}},
			[]models.AutomationItem{{Type: ActionAddKeyword, Param0: "finance"}}),
	}}
	eng := NewEngine(src, testLogger())

	env := &Env{Name: "report.pdf"}
	require.NoError(t, eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, env))
	assert.Empty(t, env.Keywords)
}

func TestExclusiveRuleStopsLaterRulesOnlyWhenFired(t *testing.T) {
	first := rule("r1", 1, true,
		[]models.AutomationItem{{Type: ValidationNameContains, Param0: "report"}},
		[]models.AutomationItem{{Type: ActionAddKeyword, Param0: "first"}})
	second := rule("r2", 2, false, nil,
		[]models.AutomationItem{{Type: ActionAddKeyword, Param0: "second"}})
	eng := NewEngine(&fakeRules{rules: []*models.AutomationRule{first, second}}, testLogger())

	// Rule 1 fires: rule 2 must not run.
	env := &Env{Name: "report.pdf"}
	require.NoError(t, eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, env))
	assert.Equal(t, []string{"first"}, env.Keywords)

	// Rule 1's validation fails: the exclusive flag does not block rule 2.
	env = &Env{Name: "letter.txt"}
	require.NoError(t, eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, env))
	assert.Equal(t, []string{"second"}, env.Keywords)
}

func TestRulesRunInOrder(t *testing.T) {
	src := &fakeRules{rules: []*models.AutomationRule{
		rule("r1", 1, false, nil,
			[]models.AutomationItem{{Type: ActionRenameDocument, Param0: "renamed.txt"}}),
		rule("r2", 2, false, nil,
			[]models.AutomationItem{{Type: ActionPrefixName, Param0: "archive-"}}),
	}}
	eng := NewEngine(src, testLogger())

	env := &Env{Name: "original.txt"}
	require.NoError(t, eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, env))
	assert.Equal(t, "archive-renamed.txt", env.Name)
}

func TestUnknownItemTypeAbortsWithAutomationError(t *testing.T) {
	src := &fakeRules{rules: []*models.AutomationRule{
		rule("r1", 1, false, nil,
			[]models.AutomationItem{{Type: "no_such_action"}}),
	}}
	eng := NewEngine(src, testLogger())

	err := eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, &Env{})
	assert.True(t, errors.Is(err, common.ErrAutomation))
}

func TestMoveToFolderRewritesParentAndClearsNode(t *testing.T) {
	src := &fakeRules{rules: []*models.AutomationRule{
		rule("r1", 1, false, nil,
			[]models.AutomationItem{{Type: ActionMoveToFolder, Param0: "folder-2"}}),
	}}
	eng := NewEngine(src, testLogger())

	env := &Env{ParentID: "folder-1", ParentNode: &models.Node{ID: "folder-1"}}
	require.NoError(t, eng.Fire(context.Background(), models.EventDocumentCreate, models.TimingPre, env))
	assert.Equal(t, "folder-2", env.ParentID)
	assert.Nil(t, env.ParentNode)
}

func TestReplaceTextAction(t *testing.T) {
	src := &fakeRules{rules: []*models.AutomationRule{
		{
			ID: "r1", Name: "r1", Event: models.EventTextExtractor, Timing: models.TimingPost,
			Order: 1, Active: true,
			Validations: []models.AutomationItem{{Type: ValidationTextContains, Param0: "secret"}},
			Actions:     []models.AutomationItem{{Type: ActionReplaceText, Param0: "secret", Param1: "[redacted]"}},
		},
	}}
	eng := NewEngine(src, testLogger())

	env := &Env{Text: "the secret plan"}
	require.NoError(t, eng.Fire(context.Background(), models.EventTextExtractor, models.TimingPost, env))
	assert.Equal(t, "the [redacted] plan", env.Text)
}
