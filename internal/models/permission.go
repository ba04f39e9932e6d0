package models

// Permission is the per-principal grant bitmask stored on every node.
type Permission int

const (
	PermRead     Permission = 1 << iota // list/read node and content
	PermWrite                           // mutate node, create children
	PermDelete                          // trash/purge node
	PermSecurity                        // change grants
)

// AllGrants is the union of every permission bit, assigned to creators.
const AllGrants = PermRead | PermWrite | PermDelete | PermSecurity

// Has reports whether all bits of want are present.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}
