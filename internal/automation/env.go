// Package automation runs ordered pre/post hook pipelines around repository
// lifecycle events. Rules are configured rows (see models.AutomationRule);
// this package turns them into executable validations and actions over a
// typed environment.
package automation

import "github.com/avasilyev/docbase/internal/models"

// Env is the mutable environment a hook pipeline reads and rewrites. Each
// event populates the fields that make sense for it:
//
//   - document_create PRE: ParentID, ParentNode, Name, MimeType, Keywords
//   - document_create POST: Node, UploadResponse
//   - document_move PRE: Node, ParentID, ParentNode
//   - folder_create PRE: ParentID, ParentNode, Name
//   - text_extractor PRE: Node; POST: Node, Text
//   - property_group_add/set POST: Node
//
// Actions mutate fields in place; the orchestrator copies the rewritten
// values back into the operation after the PRE phase. Clearing ParentNode
// when rewriting ParentID tells the orchestrator to reload the parent.
type Env struct {
	ParentID   string
	ParentNode *models.Node

	Name     string
	MimeType string
	Keywords []string

	Node *models.Node

	// Text carries extracted text through text_extractor hooks.
	Text string

	// UploadResponse is the client-visible result of a document create,
	// rewritable by POST hooks.
	UploadResponse string
}

func (e *Env) HasKeyword(kw string) bool {
	for _, k := range e.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

func (e *Env) AddKeyword(kw string) {
	if !e.HasKeyword(kw) {
		e.Keywords = append(e.Keywords, kw)
	}
}
