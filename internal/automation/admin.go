package automation

import "context"

// PathResolver translates between node ids and repository paths. Implemented
// by the store.
type PathResolver interface {
	NodePath(ctx context.Context, id string) (string, error)
	ResolvePath(ctx context.Context, path string) (string, error)
}

// Validation and action types whose first parameter is a folder, stored as
// a node id and shown as a path.
var folderParamTypes = map[string]bool{
	ValidationParentFolder: true,
	ActionMoveToFolder:     true,
}

// FolderParam reports whether items of the given type carry a folder id in
// param0.
func FolderParam(typ string) bool {
	return folderParamTypes[typ]
}

// RenderFolderParam converts a stored folder id to a path for display.
func RenderFolderParam(ctx context.Context, r PathResolver, typ, param0 string) (string, error) {
	if !FolderParam(typ) || param0 == "" {
		return param0, nil
	}
	return r.NodePath(ctx, param0)
}

// ParseFolderParam converts a user-supplied folder path to the id stored in
// the rule item.
func ParseFolderParam(ctx context.Context, r PathResolver, typ, param0 string) (string, error) {
	if !FolderParam(typ) || param0 == "" {
		return param0, nil
	}
	return r.ResolvePath(ctx, param0)
}
