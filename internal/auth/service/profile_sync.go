package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/alertx"
	"github.com/saifdinehd/shopauth/pkg/idx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

const (
	DefaultMaxProfileAttempts = 5
	DefaultProfileBackoff     = 30 * time.Second
	DefaultMaxProfileBackoff  = time.Hour
	DefaultProfileBatchSize   = 50
	DefaultProfileClaimLease  = 2 * time.Minute
)

// ProfileSyncService drives the profile outbox. A credential and its outbox
// entry are written together; delivery to the user service happens after the
// commit, inline on registration and again from housekeeping until it either
// succeeds or runs out of attempts.
type ProfileSyncService struct {
	Store    store.Store
	Profiles ProfileCreator
	Alerts   alertx.Reporter
	Clock    Clock

	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
	// ClaimLease hides a claimed entry from other workers while it is
	// being delivered. It must outlast one user service call.
	ClaimLease time.Duration
}

func (s *ProfileSyncService) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return DefaultMaxProfileAttempts
	}
	return s.MaxAttempts
}

// retryDelay is the wait before attempt number attempts+1, doubling from
// Backoff and capped at MaxBackoff.
func (s *ProfileSyncService) retryDelay(attempts int) time.Duration {
	base, ceiling := s.Backoff, s.MaxBackoff
	if base <= 0 {
		base = DefaultProfileBackoff
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxProfileBackoff
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return min(d, ceiling)
}

func (s *ProfileSyncService) report(ctx context.Context, err error, tags map[string]string) {
	if s.Alerts == nil {
		return
	}
	s.Alerts.Report(ctx, err, tags)
}

// CreateWithProfile writes cred and an outbox entry for profile in one
// transaction. The entry is not due until the first retry delay has passed so
// the housekeeping worker does not race the inline delivery that follows.
func (s *ProfileSyncService) CreateWithProfile(
	ctx context.Context,
	cred domain.Credential,
	profile domain.Profile,
) (domain.PendingProfile, error) {
	now := s.Clock.now()
	pending := domain.PendingProfile{
		ID:            idx.NewAt(now).String(),
		Profile:       profile,
		NextAttemptAt: now.Add(s.retryDelay(1)),
		CreatedAt:     now,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().CreateCredential(ctx, cred); err != nil {
			return err
		}
		return tx.ProfileOutbox().EnqueueProfile(ctx, pending)
	})
	if err != nil {
		return domain.PendingProfile{}, err
	}
	return pending, nil
}

// Deliver makes one attempt to create the profile held by p and records the
// outcome. It returns the resulting profile status. The returned error is a
// storage failure; collaborator failures are recorded on the entry and
// reported to operators instead.
func (s *ProfileSyncService) Deliver(ctx context.Context, p domain.PendingProfile) (domain.ProfileStatus, error) {
	l := slogx.FromContext(ctx).With(slog.String("account_id", p.Profile.AccountID))

	createErr := s.Profiles.CreateProfile(ctx, p.Profile)
	if createErr == nil {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Credentials().SetProfileStatus(ctx, p.Profile.AccountID, domain.ProfileConfirmed); err != nil {
				return err
			}
			return ignoreNotFound(tx.ProfileOutbox().DeleteProfile(ctx, p.ID))
		})
		if err != nil {
			l.Error("failed to confirm profile", slog.Any("error", err))
			return domain.ProfilePending, err
		}
		l.Info("profile created", slog.Int("attempt", p.Attempts+1))
		return domain.ProfileConfirmed, nil
	}

	attempts := p.Attempts + 1
	failure := fmt.Errorf("%w: create profile: %w", ErrUpstream, createErr)
	s.report(ctx, failure, map[string]string{
		"operation":  "create_profile",
		"account_id": p.Profile.AccountID,
		"attempt":    strconv.Itoa(attempts),
	})

	if attempts >= s.maxAttempts() {
		return s.compensate(ctx, p, attempts)
	}

	next := s.Clock.now().Add(s.retryDelay(attempts))
	if err := s.Store.ProfileOutbox().RecordProfileFailure(ctx, p.ID, attempts, createErr.Error(), next); err != nil {
		l.Error("failed to record profile failure", slog.Any("error", err))
		return domain.ProfilePending, err
	}
	l.Warn("profile creation failed, will retry",
		slog.Int("attempt", attempts),
		slog.Time("next_attempt_at", next),
		slog.Any("error", createErr),
	)
	return domain.ProfilePending, nil
}

// compensate gives up on an entry. A credential still waiting on its profile
// is deactivated and marked failed; credentials that were confirmed by other
// means (the seeded admin) keep working.
func (s *ProfileSyncService) compensate(
	ctx context.Context,
	p domain.PendingProfile,
	attempts int,
) (domain.ProfileStatus, error) {
	l := slogx.FromContext(ctx).With(slog.String("account_id", p.Profile.AccountID))

	status := domain.ProfileFailed
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		cred, err := tx.Credentials().GetCredentialByAccountID(ctx, p.Profile.AccountID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err == nil && cred.ProfileStatus == domain.ProfilePending {
			if err := tx.Credentials().SetActive(ctx, cred.AccountID, false); err != nil {
				return err
			}
			if err := tx.Credentials().SetProfileStatus(ctx, cred.AccountID, domain.ProfileFailed); err != nil {
				return err
			}
		} else if err == nil {
			status = cred.ProfileStatus
		}
		return ignoreNotFound(tx.ProfileOutbox().DeleteProfile(ctx, p.ID))
	})
	if err != nil {
		l.Error("failed to compensate profile", slog.Any("error", err))
		return domain.ProfilePending, err
	}

	l.Error("profile creation abandoned", slog.Int("attempts", attempts), slog.String("status", string(status)))
	s.report(ctx, fmt.Errorf("%w: profile abandoned after %d attempts", ErrUpstream, attempts), map[string]string{
		"operation":  "compensate_profile",
		"account_id": p.Profile.AccountID,
	})
	return status, nil
}

// ProcessPending claims due outbox entries, at most BatchSize per call, and
// retries each of them. Claims are leased, so a concurrent instance skips
// entries that another one is delivering.
// Entries are independent; one failing does not stop the rest.
func (s *ProfileSyncService) ProcessPending(ctx context.Context) (int, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultProfileBatchSize
	}

	lease := s.ClaimLease
	if lease <= 0 {
		lease = DefaultProfileClaimLease
	}

	now := s.Clock.now()
	due, err := s.Store.ProfileOutbox().ClaimDueProfiles(ctx, now, now.Add(lease), batch)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	var errs []error
	for _, p := range due {
		status, err := s.Deliver(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if status == domain.ProfileConfirmed {
			confirmed++
		}
	}
	return confirmed, errors.Join(errs...)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
