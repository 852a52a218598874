package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants used when the service config leaves them unset.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Role is the closed set of roles a credential can hold. It is shared by the
// token claims and the credential record so both sides agree on the values.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole returns the Role for s or an error when s is not a known role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("jwtx: unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// UnmarshalJSON rejects unknown roles so a forged or stale role claim never
// makes it past decoding. An empty value is allowed (refresh tokens carry no role).
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Purpose distinguishes access tokens from refresh tokens. Without it a
// long-lived refresh token could be replayed as a bearer access token.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

// Claims is the payload carried by every token the service mints.
//
//	{sub, role, email, typ, iss, iat, nbf, exp, jti}
type Claims struct {
	jwt.RegisteredClaims

	// Role of the account, only set on access tokens.
	Role Role `json:"role,omitempty"`

	// Email of the account at issuance, only set on access tokens.
	Email string `json:"email,omitempty"`

	// Purpose is "access" or "refresh".
	Purpose Purpose `json:"typ"`
}

// Subject is what an access token is minted for.
type Subject struct {
	AccountID string
	Role      Role
	Email     string
}

// NewAccessClaims builds claims for an access token.
func NewAccessClaims(sub Subject, issuer string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(sub.AccountID, issuer, ttl, now, PurposeAccess)
	c.Role = sub.Role
	c.Email = sub.Email
	return c
}

// NewRefreshClaims builds claims for a refresh token. They carry the account
// id only; role and email are re-read from the credential on refresh.
func NewRefreshClaims(accountID, issuer string, ttl time.Duration, now time.Time) Claims {
	return newClaims(accountID, issuer, ttl, now, PurposeRefresh)
}

func newClaims(subject, issuer string, ttl time.Duration, now time.Time, p Purpose) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Purpose: p,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// minted for the same account in the same second differ only by it.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidatePurpose checks the typ claim.
func (c *Claims) ValidatePurpose(want Purpose) error {
	if c.Purpose != want {
		return ErrWrongPurpose
	}
	return nil
}
