// Package models holds the persistent domain types of the repository tree:
// nodes, document versions, locks, permission grants, automation rules and
// the dependent records cascaded on purge.
package models

import "time"

// NodeKind discriminates the node variants. Tree-walk code switches on it
// instead of relying on dynamic dispatch.
type NodeKind string

const (
	KindFolder   NodeKind = "folder"
	KindDocument NodeKind = "document"
	KindMail     NodeKind = "mail"
)

// Node is one entry of the repository tree. Document and mail specific
// state lives in the optional sub-structs, non-nil iff Kind matches.
type Node struct {
	ID       string
	ParentID string // empty only for the repository root
	Kind     NodeKind
	Name     string // unique among siblings
	Context  string // tenant/subtree tag inherited from the parent
	Author   string
	Created  time.Time

	UserPermissions map[string]Permission
	RolePermissions map[string]Permission

	Document *DocumentProps
	Mail     *MailProps
}

// DocumentProps carries the document-only state of a node.
type DocumentProps struct {
	MimeType      string
	CheckedOut    bool
	Lock          *Lock // nil when unlocked
	TextExtracted bool
	ExtractedText string
	Language      string
	Keywords      []string
	// Categories are weak references to taxonomy folders. They never imply
	// ownership and are never cascade-deleted with the category folder;
	// a dangling id just means "uncategorized".
	Categories   []string
	Subscriptors []string
	Properties   []NodeProperty
}

// MailProps carries the mail-item state of a node.
type MailProps struct {
	From    string
	To      string
	Subject string
	Sent    time.Time
}

// NodeProperty is one property-group value attached to a document.
type NodeProperty struct {
	Group string
	Name  string
	Value string
}

// Lock is the per-document advisory edit lock. It exists 0-or-1 per
// document and is enforced cooperatively by every mutating operation.
type Lock struct {
	Token   string
	Owner   string
	Created time.Time
}

// IsLocked reports whether the node currently holds a lock. Only document
// nodes can be locked.
func (n *Node) IsLocked() bool {
	return n.Document != nil && n.Document.Lock != nil
}
