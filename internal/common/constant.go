package common

// SystemUser is the distinguished internal principal. It bypasses quota
// accounting and is used for maintenance jobs such as text extraction.
const SystemUser = "system"

// Per-user base folder names, created lazily on first use. The folder name
// doubles as the context prefix of the subtree below it.
const (
	ContextRoot     = "root"
	ContextPersonal = "personal"
	ContextTrash    = "trash"
	ContextMail     = "mail"
	ContextCategory = "categories"
)
