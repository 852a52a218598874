package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/cryptox"
	"github.com/saifdinehd/shopauth/pkg/idx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

const (
	adminFirstName = "Super"
	adminLastName  = "Admin"
)

// BootstrapService seeds the first ADMIN credential from configuration.
type BootstrapService struct {
	ProfileSync *ProfileSyncService
	Clock       Clock
}

// SeedAdmin creates an ADMIN credential for email unless one already exists.
// It reports whether a credential was created. Empty email or password means
// seeding is not configured.
func (s *BootstrapService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	l := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, nil
	}

	existing, err := s.ProfileSync.Store.Credentials().GetCredentialByEmail(ctx, email)
	switch {
	case err == nil:
		s.resumeProfile(ctx, existing.AccountID)
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return false, err
	}

	now := s.Clock.now()
	cred := domain.Credential{
		ID:            idx.NewAt(now).String(),
		AccountID:     idx.NewAccountID(),
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		Active:        true,
		ProfileStatus: domain.ProfileConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	pending, err := s.ProfileSync.CreateWithProfile(ctx, cred, domain.Profile{
		AccountID: cred.AccountID,
		Email:     cred.Email,
		FirstName: adminFirstName,
		LastName:  adminLastName,
		Role:      domain.RoleAdmin,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		l.Error("failed to seed admin", slog.Any("error", err))
		return false, err
	}

	// The admin can log in whether or not the profile lands now; housekeeping
	// keeps retrying it.
	if _, err := s.ProfileSync.Deliver(ctx, pending); err != nil {
		l.Warn("admin profile delivery deferred", slog.Any("error", err))
	}

	l.Info("admin seeded", slog.String("account_id", cred.AccountID))
	return true, nil
}

// resumeProfile delivers an admin profile that an earlier start left in the
// outbox instead of waiting for the next housekeeping pass.
func (s *BootstrapService) resumeProfile(ctx context.Context, accountID string) {
	l := slogx.FromContext(ctx).With(slog.String("account_id", accountID))

	pending, err := s.ProfileSync.Store.ProfileOutbox().GetPendingProfile(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		l.Debug("admin already seeded")
		return
	}
	if err != nil {
		l.Warn("failed to look up admin profile", slog.Any("error", err))
		return
	}

	if _, err := s.ProfileSync.Deliver(ctx, pending); err != nil {
		l.Warn("admin profile delivery deferred", slog.Any("error", err))
	}
}
