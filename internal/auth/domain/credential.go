package domain

import (
	"time"

	"github.com/saifdinehd/shopauth/pkg/jwtx"
)

// Role is shared with the token claims so both agree on the closed set.
type Role = jwtx.Role

const (
	RoleUser  = jwtx.RoleUser
	RoleAdmin = jwtx.RoleAdmin
)

// ProfileStatus tracks the user-service profile that goes with a credential.
type ProfileStatus string

const (
	// ProfilePending means the credential exists but the profile has not been
	// created yet; the profile outbox still holds an entry for it.
	ProfilePending ProfileStatus = "pending"

	// ProfileConfirmed means the user service acknowledged the profile.
	ProfileConfirmed ProfileStatus = "confirmed"

	// ProfileFailed means every attempt failed and the credential was
	// deactivated.
	ProfileFailed ProfileStatus = "failed"
)

// Credential is the authentication record of one account.
type Credential struct {
	ID             string // ULID
	AccountID      string // UUID, the stable external reference
	Email          string
	PasswordHash   string // argon2id PHC string
	Role           Role
	Active         bool
	FailedAttempts int
	LockedUntil    *time.Time
	ProfileStatus  ProfileStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Subject is what access tokens are minted for.
func (c Credential) Subject() jwtx.Subject {
	return jwtx.Subject{
		AccountID: c.AccountID,
		Role:      c.Role,
		Email:     c.Email,
	}
}
