package postgres

import (
	"context"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
)

type refreshTokensRepo struct {
	q *queries
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = r.q.now()
	}
	_, err := r.q.db.ExecContext(ctx, createRefreshToken,
		t.ID, t.AccountID, t.TokenHash, t.ExpiresAt.UTC(), created.UTC(),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetActiveRefreshToken(
	ctx context.Context,
	accountID, hash string,
) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.q.db.QueryRowContext(ctx, getActiveRefreshToken, accountID, hash).Scan(
		&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	return requireOneRow(r.q.db.ExecContext(ctx, revokeRefreshToken, hash))
}

func (r *refreshTokensRepo) DeleteAccountRefreshTokens(ctx context.Context, accountID string) (int64, error) {
	return rowsAffected(r.q.db.ExecContext(ctx, deleteAccountRefreshTokens, accountID))
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.db.ExecContext(ctx, deleteExpiredRefreshTokens, now.UTC()))
}
