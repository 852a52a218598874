package sqlite

import (
	"context"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
)

type resetTokensRepo struct {
	q *queries
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = r.q.now()
	}
	_, err := r.q.db.ExecContext(ctx, createResetToken,
		t.ID,
		t.AccountID,
		t.Email,
		t.TokenHash,
		toMillis(t.ExpiresAt),
		toMillis(created),
	)
	return mapConstraint(err)
}

func (r *resetTokensRepo) GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error) {
	var (
		t                    domain.PasswordResetToken
		expiresAt, createdAt int64
	)
	err := r.q.db.QueryRowContext(ctx, getResetTokenByHash, hash).Scan(
		&t.ID, &t.AccountID, &t.Email, &t.TokenHash, &t.Used, &expiresAt, &createdAt,
	)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func (r *resetTokensRepo) MarkResetTokenUsed(ctx context.Context, id string) error {
	return requireOneRow(r.q.db.ExecContext(ctx, markResetTokenUsed, id))
}

func (r *resetTokensRepo) DeleteAccountResetTokens(ctx context.Context, accountID string) (int64, error) {
	return rowsAffected(r.q.db.ExecContext(ctx, deleteAccountResetTokens, accountID))
}

func (r *resetTokensRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.db.ExecContext(ctx, deleteExpiredResetTokens, toMillis(now)))
}
