package sqlite

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
	getCredentialByEmail = `SELECT ` + credentialColumns + ` FROM credentials WHERE email = ?`

	getCredentialByAccountID = `SELECT ` + credentialColumns + ` FROM credentials WHERE account_id = ?`

	countCredentialsByEmail = `SELECT COUNT(*) FROM credentials WHERE email = ?`

	createCredential = `INSERT INTO credentials (` + credentialColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateLoginState = `UPDATE credentials
	SET failed_attempts = ?, locked_until = ?, updated_at = ?
	WHERE account_id = ?`

	updatePasswordHash = `UPDATE credentials
	SET password_hash = ?, failed_attempts = 0, locked_until = NULL, updated_at = ?
	WHERE account_id = ?`

	setProfileStatus = `UPDATE credentials SET profile_status = ?, updated_at = ? WHERE account_id = ?`

	setActive = `UPDATE credentials SET active = ?, updated_at = ? WHERE account_id = ?`
)

const (
	createRefreshToken = `INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at, revoked, created_at)
	VALUES (?, ?, ?, ?, 0, ?)`

	getActiveRefreshToken = `SELECT id, account_id, token_hash, expires_at, revoked, created_at
	FROM refresh_tokens
	WHERE account_id = ? AND token_hash = ? AND revoked = 0`

	revokeRefreshToken = `UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ? AND revoked = 0`

	deleteAccountRefreshTokens = `DELETE FROM refresh_tokens WHERE account_id = ?`

	deleteExpiredRefreshTokens = `DELETE FROM refresh_tokens WHERE expires_at < ?`
)

const (
	createResetToken = `INSERT INTO password_reset_tokens (id, account_id, email, token_hash, used, expires_at, created_at)
	VALUES (?, ?, ?, ?, 0, ?, ?)`

	getResetTokenByHash = `SELECT id, account_id, email, token_hash, used, expires_at, created_at
	FROM password_reset_tokens
	WHERE token_hash = ?`

	markResetTokenUsed = `UPDATE password_reset_tokens SET used = 1 WHERE id = ? AND used = 0`

	deleteAccountResetTokens = `DELETE FROM password_reset_tokens WHERE account_id = ?`

	deleteExpiredResetTokens = `DELETE FROM password_reset_tokens WHERE expires_at < ?`
)

const pendingProfileColumns = `id, account_id, email, first_name, last_name, role,
	attempts, last_error, next_attempt_at, created_at`

const (
	enqueueProfile = `INSERT INTO profile_outbox (` + pendingProfileColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	claimDueProfiles = `UPDATE profile_outbox
	SET next_attempt_at = ?
	WHERE id IN (
		SELECT id FROM profile_outbox
		WHERE next_attempt_at <= ?
		ORDER BY next_attempt_at, created_at
		LIMIT ?
	)
	RETURNING ` + pendingProfileColumns

	getPendingProfile = `SELECT ` + pendingProfileColumns + ` FROM profile_outbox WHERE account_id = ?`

	recordProfileFailure = `UPDATE profile_outbox
	SET attempts = ?, last_error = ?, next_attempt_at = ?
	WHERE id = ?`

	deleteProfile = `DELETE FROM profile_outbox WHERE id = ?`
)
