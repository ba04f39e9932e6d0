package models

// Automation event codes. PRE hooks fire before the core operation and may
// rewrite its inputs; POST hooks observe the finalized node and may rewrite
// the result.
const (
	EventDocumentCreate   = "document_create"
	EventDocumentMove     = "document_move"
	EventFolderCreate     = "folder_create"
	EventPropertyGroupAdd = "property_group_add"
	EventPropertyGroupSet = "property_group_set"
	EventTextExtractor    = "text_extractor"
	EventConversionPDF    = "conversion_pdf"
	EventConversionSWF    = "conversion_swf"
)

// Automation timings.
const (
	TimingPre  = "pre"
	TimingPost = "post"
)

// AutomationRule is a configured hook evaluated around a lifecycle event.
// Rules for one (event, timing) pair run in ascending Order. An exclusive
// rule that fires (all validations pass, actions succeed) stops evaluation
// of the remaining rules for that pair.
type AutomationRule struct {
	ID        string
	Name      string
	Event     string
	Timing    string
	Order     int
	Exclusive bool
	Active    bool

	Validations []AutomationItem
	Actions     []AutomationItem
}

// AutomationItem is one validation or action of a rule: a named operation
// with up to two string parameters. Folder-valued parameters are stored as
// node ids and rendered as paths only at the administrative edges.
type AutomationItem struct {
	ID     string
	RuleID string
	Order  int
	Type   string
	Param0 string
	Param1 string
	Active bool
}
