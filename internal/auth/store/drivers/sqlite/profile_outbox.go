package sqlite

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
)

type profileOutboxRepo struct {
	q *queries
}

func scanPendingProfile(row rowScanner) (domain.PendingProfile, error) {
	var (
		p                        domain.PendingProfile
		role                     string
		nextAttemptAt, createdAt int64
	)
	if err := row.Scan(
		&p.ID, &p.Profile.AccountID, &p.Profile.Email, &p.Profile.FirstName, &p.Profile.LastName, &role,
		&p.Attempts, &p.LastError, &nextAttemptAt, &createdAt,
	); err != nil {
		return domain.PendingProfile{}, mapNotFound(err)
	}
	p.Profile.Role = domain.Role(role)
	p.NextAttemptAt = fromMillis(nextAttemptAt)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func (r *profileOutboxRepo) EnqueueProfile(ctx context.Context, p domain.PendingProfile) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = r.q.now()
	}
	next := p.NextAttemptAt
	if next.IsZero() {
		next = created
	}
	_, err := r.q.db.ExecContext(ctx, enqueueProfile,
		p.ID,
		p.Profile.AccountID,
		p.Profile.Email,
		p.Profile.FirstName,
		p.Profile.LastName,
		string(p.Profile.Role),
		p.Attempts,
		p.LastError,
		toMillis(next),
		toMillis(created),
	)
	return mapConstraint(err)
}

func (r *profileOutboxRepo) ClaimDueProfiles(
	ctx context.Context,
	now, leaseUntil time.Time,
	limit int,
) ([]domain.PendingProfile, error) {
	rows, err := r.q.db.QueryContext(ctx, claimDueProfiles, toMillis(leaseUntil), toMillis(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PendingProfile
	for rows.Next() {
		p, err := scanPendingProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING has no defined order.
	slices.SortFunc(out, func(a, b domain.PendingProfile) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *profileOutboxRepo) GetPendingProfile(ctx context.Context, accountID string) (domain.PendingProfile, error) {
	return scanPendingProfile(r.q.db.QueryRowContext(ctx, getPendingProfile, accountID))
}

func (r *profileOutboxRepo) RecordProfileFailure(
	ctx context.Context,
	id string,
	attempts int,
	lastError string,
	nextAttemptAt time.Time,
) error {
	return requireOneRow(r.q.db.ExecContext(ctx, recordProfileFailure,
		attempts, lastError, toMillis(nextAttemptAt), id,
	))
}

func (r *profileOutboxRepo) DeleteProfile(ctx context.Context, id string) error {
	return requireOneRow(r.q.db.ExecContext(ctx, deleteProfile, id))
}
