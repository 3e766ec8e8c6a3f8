package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Login failure taxonomy surfaced by the member-number login adapter
var (
	ErrMemberNotFound        = errors.New("member not found")
	ErrAccountCreationFailed = errors.New("account creation failed")
	ErrLinkingFailed         = errors.New("failed to link member to auth account")
	ErrProvider              = errors.New("identity provider error")
)

// Profile resolution states. ErrNoProfile is a valid terminal state for a
// freshly created auth account pending backfill, distinct from a store error.
var (
	ErrNoProfile           = errors.New("no profile for session")
	ErrMemberAlreadyExists = errors.New("member number already registered")
	ErrMemberNotLinked     = errors.New("member has no linked auth account")
)
