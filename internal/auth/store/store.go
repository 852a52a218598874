package store

import (
	"context"
	"errors"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories hang off the Store or a Tx so a
// multi-step operation can't mix transactional and non-transactional writes
// by accident.
type Store interface {
	Credentials() Credentials
	RefreshTokens() RefreshTokens
	ResetTokens() ResetTokens
	ProfileOutbox() ProfileOutbox

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// fn must only use tx: the sqlite driver runs on a single connection and
	// a call on the outer Store would block until the transaction ends.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Credentials interface {
	// GetCredentialByEmail is used by login and password reset. Matching is
	// exact.
	GetCredentialByEmail(ctx context.Context, email string) (domain.Credential, error)

	GetCredentialByAccountID(ctx context.Context, accountID string) (domain.Credential, error)

	EmailExists(ctx context.Context, email string) (bool, error)

	// CreateCredential inserts a new credential. A duplicate email or account
	// id yields ErrAlreadyExists.
	CreateCredential(ctx context.Context, c domain.Credential) error

	// UpdateLoginState persists the lockout counters.
	UpdateLoginState(ctx context.Context, accountID string, failedAttempts int, lockedUntil *time.Time) error

	// UpdatePasswordHash sets a new hash and clears the lockout counters.
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error

	SetProfileStatus(ctx context.Context, accountID string, status domain.ProfileStatus) error

	SetActive(ctx context.Context, accountID string, active bool) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetActiveRefreshToken returns the non-revoked token of accountID with
	// the given fingerprint. Expiry is left to the caller.
	GetActiveRefreshToken(ctx context.Context, accountID, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked from false to true. It returns
	// ErrNotFound when no active token matched, so concurrent revokes of the
	// same token succeed exactly once.
	RevokeRefreshToken(ctx context.Context, hash string) error

	DeleteAccountRefreshTokens(ctx context.Context, accountID string) (int64, error)

	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type ResetTokens interface {
	CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error

	GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error)

	// MarkResetTokenUsed flips used from false to true, ErrNotFound when the
	// token was already used (or doesn't exist).
	MarkResetTokenUsed(ctx context.Context, id string) error

	DeleteAccountResetTokens(ctx context.Context, accountID string) (int64, error)

	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type ProfileOutbox interface {
	EnqueueProfile(ctx context.Context, p domain.PendingProfile) error

	// ClaimDueProfiles atomically leases up to limit entries whose next
	// attempt is at or before now by moving their next attempt to
	// leaseUntil. A claimed entry is not handed out again until the lease
	// runs out or the entry is updated.
	ClaimDueProfiles(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.PendingProfile, error)

	GetPendingProfile(ctx context.Context, accountID string) (domain.PendingProfile, error)

	RecordProfileFailure(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error

	DeleteProfile(ctx context.Context, id string) error
}
