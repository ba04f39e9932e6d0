// Package common defines shared constants and sentinel errors used across
// the repository engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Path resolution errors.
	ErrPathNotFound = errors.New("path not found")

	// Security errors (required permission bit missing).
	ErrAccessDenied = errors.New("access denied")

	// Sibling name collision.
	ErrItemExists = errors.New("item exists")

	// Lock state violations: already locked, not locked, wrong owner.
	ErrLock = errors.New("lock error")

	// Quota exceeded on document create.
	ErrUserQuotaExceeded = errors.New("user quota exceeded")

	// A hook validation or action failed with a domain error.
	ErrAutomation = errors.New("automation error")

	// Lower-layer storage failures, wrapped at the store boundary so callers
	// never see backend-specific error types.
	ErrDatabase = errors.New("database error")
)
