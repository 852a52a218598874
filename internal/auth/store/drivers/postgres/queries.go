package postgres

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db  DBTX
	now func() time.Time
}

func newQueries(db DBTX) *queries {
	return &queries{db: db, now: time.Now}
}

const credentialColumns = `id, account_id, email, password_hash, role, active,
	failed_attempts, locked_until, profile_status, created_at, updated_at`

const (
	getCredentialByEmail = `SELECT ` + credentialColumns + ` FROM credentials WHERE email = $1`

	getCredentialByAccountID = `SELECT ` + credentialColumns + ` FROM credentials WHERE account_id = $1`

	emailExists = `SELECT EXISTS (SELECT 1 FROM credentials WHERE email = $1)`

	createCredential = `INSERT INTO credentials (` + credentialColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	updateLoginState = `UPDATE credentials
	SET failed_attempts = $1, locked_until = $2, updated_at = $3
	WHERE account_id = $4`

	updatePasswordHash = `UPDATE credentials
	SET password_hash = $1, failed_attempts = 0, locked_until = NULL, updated_at = $2
	WHERE account_id = $3`

	setProfileStatus = `UPDATE credentials SET profile_status = $1, updated_at = $2 WHERE account_id = $3`

	setActive = `UPDATE credentials SET active = $1, updated_at = $2 WHERE account_id = $3`
)

const (
	createRefreshToken = `INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at, revoked, created_at)
	VALUES ($1, $2, $3, $4, FALSE, $5)`

	getActiveRefreshToken = `SELECT id, account_id, token_hash, expires_at, revoked, created_at
	FROM refresh_tokens
	WHERE account_id = $1 AND token_hash = $2 AND NOT revoked`

	revokeRefreshToken = `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1 AND NOT revoked`

	deleteAccountRefreshTokens = `DELETE FROM refresh_tokens WHERE account_id = $1`

	deleteExpiredRefreshTokens = `DELETE FROM refresh_tokens WHERE expires_at < $1`
)

const (
	createResetToken = `INSERT INTO password_reset_tokens (id, account_id, email, token_hash, used, expires_at, created_at)
	VALUES ($1, $2, $3, $4, FALSE, $5, $6)`

	getResetTokenByHash = `SELECT id, account_id, email, token_hash, used, expires_at, created_at
	FROM password_reset_tokens
	WHERE token_hash = $1`

	markResetTokenUsed = `UPDATE password_reset_tokens SET used = TRUE WHERE id = $1 AND NOT used`

	deleteAccountResetTokens = `DELETE FROM password_reset_tokens WHERE account_id = $1`

	deleteExpiredResetTokens = `DELETE FROM password_reset_tokens WHERE expires_at < $1`
)

const pendingProfileColumns = `id, account_id, email, first_name, last_name, role,
	attempts, last_error, next_attempt_at, created_at`

const (
	enqueueProfile = `INSERT INTO profile_outbox (` + pendingProfileColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	// Selecting and leasing happen in one statement, so rows locked by a
	// concurrent claim are skipped and a committed lease hides the entry
	// from later ones.
	claimDueProfiles = `UPDATE profile_outbox
	SET next_attempt_at = $2
	WHERE id IN (
		SELECT id FROM profile_outbox
		WHERE next_attempt_at <= $1
		ORDER BY next_attempt_at, created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING ` + pendingProfileColumns

	getPendingProfile = `SELECT ` + pendingProfileColumns + ` FROM profile_outbox WHERE account_id = $1`

	recordProfileFailure = `UPDATE profile_outbox
	SET attempts = $1, last_error = $2, next_attempt_at = $3
	WHERE id = $4`

	deleteProfile = `DELETE FROM profile_outbox WHERE id = $1`
)
