package postgres

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
		t.ID, t.AccountID, t.Email, t.TokenHash, t.ExpiresAt.UTC(), created.UTC(),
	)
	return mapConstraint(err)
}

func (r *resetTokensRepo) GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.q.db.QueryRowContext(ctx, getResetTokenByHash, hash).Scan(
		&t.ID, &t.AccountID, &t.Email, &t.TokenHash, &t.Used, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *resetTokensRepo) MarkResetTokenUsed(ctx context.Context, id string) error {
	return requireOneRow(r.q.db.ExecContext(ctx, markResetTokenUsed, id))
}

func (r *resetTokensRepo) DeleteAccountResetTokens(ctx context.Context, accountID string) (int64, error) {
	return rowsAffected(r.q.db.ExecContext(ctx, deleteAccountResetTokens, accountID))
}

func (r *resetTokensRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.db.ExecContext(ctx, deleteExpiredResetTokens, now.UTC()))
}
