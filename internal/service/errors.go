package service

import "errors"

// Errors returned to the HTTP layer.  Credential and token failures are
// coarse: callers learn that something failed, not which
// check.  The specific reason is only logged.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrInvalidEmail     = errors.New("a valid email address is required")
	ErrMissingName      = errors.New("name is required")
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
	ErrWeakPassword     = errors.New("password does not satisfy the password policy")
	ErrDuplicateEmail   = errors.New("email already registered")

	ErrUserNotFound  = errors.New("user not found")
	ErrRoleNotFound  = errors.New("role not found")
	ErrProtectedRole = errors.New("the Admin and Runner roles cannot be deleted")
)
