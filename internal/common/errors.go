// Package common defines shared constants and sentinel errors used across
// client and server layers of LinkDeck. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrVersionConflict is returned by the conditional write path when the
	// caller's expected version does not match the canonical document.
	// It is an expected outcome, not a failure: the caller receives the
	// canonical document alongside it and reconciles.
	ErrVersionConflict = errors.New("version conflict")

	// Validation errors on the HTTP boundary.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrMalformedBackupKey marks a backup key that does not belong to a
	// recognized backup prefix. Rejected before any storage access.
	ErrMalformedBackupKey = errors.New("malformed backup key")

	// Vault errors. Wrong password and corrupted ciphertext are
	// indistinguishable on purpose.
	ErrDecryption = errors.New("wrong password or corrupted data")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
)
