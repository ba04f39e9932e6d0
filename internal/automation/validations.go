package automation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Validation type names, as stored in automation_items.type.
const (
	ValidationNameContains = "name_contains"
	ValidationNameMatches  = "name_matches"
	ValidationMimeTypeIs   = "mime_type_is"
	ValidationParentFolder = "parent_folder"
	ValidationHasKeyword   = "has_keyword"
	ValidationTextContains = "text_contains"
)

func init() {
	registerValidation(ValidationNameContains, func(p0, _ string) (Validation, error) {
		return nameContains{substr: p0}, nil
	})
	registerValidation(ValidationNameMatches, func(p0, _ string) (Validation, error) {
		re, err := regexp.Compile(p0)
		if err != nil {
			return nil, fmt.Errorf("name_matches: %w", err)
		}
		return nameMatches{re: re}, nil
	})
	registerValidation(ValidationMimeTypeIs, func(p0, _ string) (Validation, error) {
		return mimeTypeIs{mime: p0}, nil
	})
	registerValidation(ValidationParentFolder, func(p0, _ string) (Validation, error) {
		return parentFolder{folderID: p0}, nil
	})
	registerValidation(ValidationHasKeyword, func(p0, _ string) (Validation, error) {
		return hasKeyword{kw: p0}, nil
	})
	registerValidation(ValidationTextContains, func(p0, _ string) (Validation, error) {
		return textContains{substr: p0}, nil
	})
}

type nameContains struct{ substr string }

func (v nameContains) Validate(_ context.Context, env *Env) (bool, error) {
	name := env.Name
	if name == "" && env.Node != nil {
		name = env.Node.Name
	}
	return strings.Contains(name, v.substr), nil
}

type nameMatches struct{ re *regexp.Regexp }

func (v nameMatches) Validate(_ context.Context, env *Env) (bool, error) {
	name := env.Name
	if name == "" && env.Node != nil {
		name = env.Node.Name
	}
	return v.re.MatchString(name), nil
}

type mimeTypeIs struct{ mime string }

func (v mimeTypeIs) Validate(_ context.Context, env *Env) (bool, error) {
	mime := env.MimeType
	if mime == "" && env.Node != nil && env.Node.Document != nil {
		mime = env.Node.Document.MimeType
	}
	return mime == v.mime, nil
}

// parentFolder matches when the operation targets a specific folder. The
// parameter is a node id; the administrative surface translates paths.
type parentFolder struct{ folderID string }

func (v parentFolder) Validate(_ context.Context, env *Env) (bool, error) {
	return env.ParentID == v.folderID, nil
}

type hasKeyword struct{ kw string }

func (v hasKeyword) Validate(_ context.Context, env *Env) (bool, error) {
	return env.HasKeyword(v.kw), nil
}

type textContains struct{ substr string }

func (v textContains) Validate(_ context.Context, env *Env) (bool, error) {
	return strings.Contains(env.Text, v.substr), nil
}
