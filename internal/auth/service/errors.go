package service

import "errors"

// Business outcomes surfaced to callers. The HTTP layer maps each to a stable
// status and error code; messages never reveal whether an email exists.
var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrDuplicateEmail     = errors.New("email_already_registered")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrAccountNotFound    = errors.New("account_not_found")

	// ErrInvalidToken and ErrExpiredToken concern refresh tokens.
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpiredToken = errors.New("token_expired")

	// ErrTokenAlreadyUsed and ErrTokenExpired concern password reset tokens.
	ErrTokenAlreadyUsed = errors.New("reset_token_used")
	ErrTokenExpired     = errors.New("reset_token_expired")

	// ErrUpstream wraps failures of the profile and notification collaborators.
	ErrUpstream = errors.New("upstream_unavailable")
)
