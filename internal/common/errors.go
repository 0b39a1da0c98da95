// Package common defines shared constants and sentinel errors used across
// client and server layers of tokenkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Login errors. Unknown users, wrong passwords and inactive accounts
	// all collapse into ErrInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Rotation errors. Internal only: the transport maps all of them to a
	// single unauthenticated response.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrSubjectMismatch      = errors.New("refresh token subject mismatch")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")

	// Startup errors.
	ErrSigningKeyMisconfigured = errors.New("signing key misconfigured")
)

// IsRotationError reports whether err is one of the refresh rejection reasons.
func IsRotationError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrRefreshTokenNotFound) ||
		errors.Is(err, ErrSubjectMismatch) ||
		errors.Is(err, ErrRefreshTokenExpired) ||
		errors.Is(err, ErrAccountInactive)
}
