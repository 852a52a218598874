package service

import (
	"context"
	"strings"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
)

// ProfileCreator creates the user-service profile that goes with a new
// credential.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, p domain.Profile) error
}

// Notifier delivers the password reset link to the account holder.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token, displayName string) error
}

// TokenCodec is the subset of jwtx.HMACCodec the auth core needs.
type TokenCodec interface {
	IssueAccessToken(sub jwtx.Subject) (string, time.Time, error)
	IssueRefreshToken(accountID string) (string, time.Time, error)
	VerifyRefresh(token string) (jwtx.Claims, error)
	VerifySignature(token string) (jwtx.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

var _ TokenCodec = (*jwtx.HMACCodec)(nil)

// Clock returns the current time. A nil Clock means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// displayName is the greeting used in notifications: the local part of the
// email address.
func displayName(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	return local
}
