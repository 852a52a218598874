package authsdk

import "time"

// ============================================================================
// Error Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the body of every non-validation error.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is a stable machine-readable code (e.g. "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse is returned when request validation fails.
type ValidationErrorResponse struct {
	// Code is always "validation_error"
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains field-specific validation errors (field name: error message)
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Registration
// ============================================================================

// RegisterRequest creates a credential and the matching user profile.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// RegisterResponse is returned with 201 (profile created) or 202 (profile
// creation still pending).
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`

	// ProfileStatus is "confirmed" or "pending"
	ProfileStatus string `json:"profileStatus"`
}

// ============================================================================
// Tokens
// ============================================================================

// LoginRequest carries the credentials of a login attempt.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token (refresh and logout endpoints).
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	// AccessToken is the HS256 JWT used to authenticate API requests
	AccessToken string `json:"accessToken"`

	// RefreshToken is the HS256 JWT used to obtain new access tokens
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expiresIn"`

	Role   string `json:"role"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ============================================================================
// Password reset
// ============================================================================

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// MessageResponse is the body of endpoints that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// ============================================================================
// Account
// ============================================================================

// MeResponse describes the authenticated account.
type MeResponse struct {
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Active        bool      `json:"active"`
	ProfileStatus string    `json:"profileStatus"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Status is "ok" or "unavailable"
	Status string `json:"status"`

	// Checks holds per-dependency results on /readyz
	Checks map[string]string `json:"checks,omitempty"`
}
