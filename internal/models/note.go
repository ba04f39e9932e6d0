package models

import "time"

// Note is a per-node annotation, ordered by creation. Notes are purged
// together with their node.
type Note struct {
	ID      string
	NodeID  string
	Author  string
	Created time.Time
	Text    string
}

// Bookmark is a per-user pointer to a node, removed when the node is purged.
type Bookmark struct {
	ID     string
	UserID string
	NodeID string
	Name   string
}

// ActivityEntry is one line of the append-only activity log. Writing it is
// fire-and-forget and never participates in the unit of work.
type ActivityEntry struct {
	User    string
	Action  string
	Subject string
	Path    string
	Detail  string
	At      time.Time
}
