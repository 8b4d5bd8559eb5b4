// Package common defines shared constants and sentinel errors used across
// client and server layers of srpvault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository/cache-level errors. ErrorNotFound deliberately covers
	// unknown and expired sessions, pairings and claim codes alike so the
	// surface stays enumeration-safe.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Protocol violations: the current exchange is discarded and the
	// caller must restart from the Start phase.
	ErrorProtocol = errors.New("protocol violation")

	// Registration conflicts. A replayed register-finish must fail rather
	// than overwrite the stored credential.
	ErrorAlreadyExists = errors.New("already exists")

	// Validation errors (malformed identifiers or request fields).
	ErrorValidation = errors.New("validation error")

	// Rate limiting: surfaced distinctly so clients can back off.
	ErrorRateLimited = errors.New("too many attempts")

	// Configuration errors (unknown KDF algorithm, SRP group mismatch).
	// Fatal for the affected credential, never silently defaulted.
	ErrorConfiguration = errors.New("configuration error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
