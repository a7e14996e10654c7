// Package common defines shared constants and sentinel errors used across
// the authorization core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Login deliberately reports one error for both an unknown email and a
	// wrong password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Access token errors. Unlike login, these two are surfaced distinctly.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")

	// Refresh token lifecycle errors.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")

	// Authorization errors.
	ErrPermissionDenied = errors.New("permission denied")

	// Validation / input errors.
	ErrValidation = errors.New("validation error")

	// Batch assignment: requested state already holds for the user.
	ErrDuplicateAssignment = errors.New("feature already assigned")

	// Collaborator timeout or non-2xx response. Never mapped to
	// ErrInvalidCredentials or ErrPermissionDenied.
	ErrUpstreamService = errors.New("upstream service error")
)
