package service

import "errors"

// Errors returned by AuthService.  The HTTP layer maps each to a status
// code; anything not listed here is treated as an internal error.
var (
	// conflicts
	ErrUserExists       = errors.New("user already exists")
	ErrSignupPending    = errors.New("OTP already sent")
	ErrProfileCompleted = errors.New("profile already completed")

	// lookups
	ErrUserNotFound   = errors.New("user not found")
	ErrSignupNotFound = errors.New("verification code expired or not found")

	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrAccountSuspended = errors.New("your account has been suspended, contact the admin")
	ErrForbidden        = errors.New("forbidden")

	// malformed input the validator cannot catch
	ErrSignupIncomplete     = errors.New("signup details missing, start signup again")
	ErrMissingIDToken       = errors.New("google credential is required")
	ErrProfileFieldsMissing = errors.New("phone number, address, city, state and zip code are required")
	ErrInvalidRole          = errors.New("role must be user or admin")
	ErrInvalidStatus        = errors.New("status must be active or suspended")

	// ErrDependency means an external system (mail, identity provider)
	// failed and nothing was changed.
	ErrDependency = errors.New("upstream service unavailable")
)
