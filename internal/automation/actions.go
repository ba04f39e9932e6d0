package automation

import (
	"context"
	"strings"
)

// Action type names, as stored in automation_items.type.
const (
	ActionRenameDocument = "rename_document"
	ActionSetMimeType    = "set_mime_type"
	ActionAddKeyword     = "add_keyword"
	ActionMoveToFolder   = "move_to_folder"
	ActionPrefixName     = "prefix_name"
	ActionReplaceText    = "replace_text"
)

func init() {
	registerAction(ActionRenameDocument, func(p0, _ string) (Action, error) {
		return renameDocument{name: p0}, nil
	})
	registerAction(ActionSetMimeType, func(p0, _ string) (Action, error) {
		return setMimeType{mime: p0}, nil
	})
	registerAction(ActionAddKeyword, func(p0, _ string) (Action, error) {
		return addKeyword{kw: p0}, nil
	})
	registerAction(ActionMoveToFolder, func(p0, _ string) (Action, error) {
		return moveToFolder{folderID: p0}, nil
	})
	registerAction(ActionPrefixName, func(p0, _ string) (Action, error) {
		return prefixName{prefix: p0}, nil
	})
	registerAction(ActionReplaceText, func(p0, p1 string) (Action, error) {
		return replaceText{old: p0, new: p1}, nil
	})
}

type renameDocument struct{ name string }

func (a renameDocument) Execute(_ context.Context, env *Env) error {
	env.Name = a.name
	return nil
}

type setMimeType struct{ mime string }

func (a setMimeType) Execute(_ context.Context, env *Env) error {
	env.MimeType = a.mime
	return nil
}

type addKeyword struct{ kw string }

func (a addKeyword) Execute(_ context.Context, env *Env) error {
	env.AddKeyword(a.kw)
	return nil
}

// moveToFolder redirects the pending operation to another parent. The
// parameter is a node id. ParentNode is cleared so the orchestrator
// reloads and re-checks it.
type moveToFolder struct{ folderID string }

func (a moveToFolder) Execute(_ context.Context, env *Env) error {
	env.ParentID = a.folderID
	env.ParentNode = nil
	return nil
}

type prefixName struct{ prefix string }

func (a prefixName) Execute(_ context.Context, env *Env) error {
	if !strings.HasPrefix(env.Name, a.prefix) {
		env.Name = a.prefix + env.Name
	}
	return nil
}

type replaceText struct{ old, new string }

func (a replaceText) Execute(_ context.Context, env *Env) error {
	env.Text = strings.ReplaceAll(env.Text, a.old, a.new)
	return nil
}
