package domain

import "time"

// RefreshToken models the stored refresh token record. Only the fingerprint
// of the token is kept.
type RefreshToken struct {
	ID        string
	AccountID string
	TokenHash string // base64url SHA-256 of the signed token
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the stored expiry has passed.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// PasswordResetToken is a single-use, time-boxed reset secret. At most one
// exists per account.
type PasswordResetToken struct {
	ID        string
	AccountID string
	Email     string // snapshot at issuance
	TokenHash string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry.
func (t PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
