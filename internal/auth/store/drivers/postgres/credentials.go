package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
)

type credentialsRepo struct {
	q *queries
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (domain.Credential, error) {
	var (
		c            domain.Credential
		role, status string
		lockedUntil  sql.NullTime
	)
	if err := row.Scan(
		&c.ID, &c.AccountID, &c.Email, &c.PasswordHash, &role, &c.Active,
		&c.FailedAttempts, &lockedUntil, &status, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.Role = domain.Role(role)
	c.ProfileStatus = domain.ProfileStatus(status)
	c.LockedUntil = mapNullTimePtr(lockedUntil)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *credentialsRepo) GetCredentialByEmail(ctx context.Context, email string) (domain.Credential, error) {
	return scanCredential(r.q.db.QueryRowContext(ctx, getCredentialByEmail, email))
}

func (r *credentialsRepo) GetCredentialByAccountID(ctx context.Context, accountID string) (domain.Credential, error) {
	return scanCredential(r.q.db.QueryRowContext(ctx, getCredentialByAccountID, accountID))
}

func (r *credentialsRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.db.QueryRowContext(ctx, emailExists, email).Scan(&exists)
	return exists, err
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.Credential) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = r.q.now()
	}
	_, err := r.q.db.ExecContext(ctx, createCredential,
		c.ID,
		c.AccountID,
		c.Email,
		c.PasswordHash,
		string(c.Role),
		c.Active,
		c.FailedAttempts,
		mapOptionalTime(c.LockedUntil),
		string(c.ProfileStatus),
		created.UTC(),
	)
	return mapConstraint(err)
}

func (r *credentialsRepo) UpdateLoginState(
	ctx context.Context,
	accountID string,
	failedAttempts int,
	lockedUntil *time.Time,
) error {
	return requireOneRow(r.q.db.ExecContext(ctx, updateLoginState,
		failedAttempts,
		mapOptionalTime(lockedUntil),
		r.q.now().UTC(),
		accountID,
	))
}

func (r *credentialsRepo) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	return requireOneRow(r.q.db.ExecContext(ctx, updatePasswordHash, hash, r.q.now().UTC(), accountID))
}

func (r *credentialsRepo) SetProfileStatus(ctx context.Context, accountID string, status domain.ProfileStatus) error {
	return requireOneRow(r.q.db.ExecContext(ctx, setProfileStatus, string(status), r.q.now().UTC(), accountID))
}

func (r *credentialsRepo) SetActive(ctx context.Context, accountID string, active bool) error {
	return requireOneRow(r.q.db.ExecContext(ctx, setActive, active, r.q.now().UTC(), accountID))
}
