package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/alertx"
	"github.com/saifdinehd/shopauth/pkg/cryptox"
	"github.com/saifdinehd/shopauth/pkg/idx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// DefaultResetTokenTTL is how long a password reset link stays usable.
const DefaultResetTokenTTL = time.Hour

// PasswordResetService runs the forgot-password workflow. A token is issued,
// mailed, optionally validated, then consumed exactly once.
type PasswordResetService struct {
	Store    store.Store
	Notifier Notifier
	Alerts   alertx.Reporter
	TokenTTL time.Duration
	Clock    Clock
}

func (s *PasswordResetService) ttl() time.Duration {
	if s.TokenTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return s.TokenTTL
}

func (s *PasswordResetService) report(ctx context.Context, err error, tags map[string]string) {
	if s.Alerts == nil {
		return
	}
	s.Alerts.Report(ctx, err, tags)
}

// Initiate issues a reset token for email and sends it out. It never returns
// an error: unknown and inactive accounts, storage failures and notification
// failures all look the same to the caller. Failures go to the logs and the
// operator channel.
func (s *PasswordResetService) Initiate(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	cred, err := s.Store.Credentials().GetCredentialByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		l.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		l.Error("password reset lookup failed", slog.Any("error", err))
		s.report(ctx, err, map[string]string{"operation": "password_reset_initiate"})
		return nil
	}
	l = l.With(slog.String("account_id", cred.AccountID))
	if !cred.Active {
		l.Info("password reset requested for disabled account")
		return nil
	}

	token, fingerprint, err := cryptox.NewOpaqueToken()
	if err != nil {
		l.Error("failed to generate reset token", slog.Any("error", err))
		s.report(ctx, err, map[string]string{"operation": "password_reset_initiate"})
		return nil
	}

	now := s.Clock.now()
	row := domain.PasswordResetToken{
		ID:        idx.NewAt(now).String(),
		AccountID: cred.AccountID,
		Email:     cred.Email,
		TokenHash: fingerprint,
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.ResetTokens().DeleteAccountResetTokens(ctx, cred.AccountID); err != nil {
			return err
		}
		return tx.ResetTokens().CreateResetToken(ctx, row)
	})
	if err != nil {
		l.Error("failed to store reset token", slog.Any("error", err))
		s.report(ctx, err, map[string]string{"operation": "password_reset_initiate", "account_id": cred.AccountID})
		return nil
	}

	if err := s.Notifier.SendPasswordReset(ctx, cred.Email, token, displayName(cred.Email)); err != nil {
		err = fmt.Errorf("%w: send password reset: %w", ErrUpstream, err)
		l.Error("failed to send password reset", slog.Any("error", err))
		s.report(ctx, err, map[string]string{"operation": "password_reset_notify", "account_id": cred.AccountID})
		return nil
	}

	l.Info("password reset issued", slog.Time("expires_at", row.ExpiresAt))
	return nil
}

// lookup resolves a presented reset token and applies the three token checks.
func (s *PasswordResetService) lookup(ctx context.Context, token string) (domain.PasswordResetToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PasswordResetToken{}, ErrInvalidToken
	}

	row, err := s.Store.ResetTokens().GetResetTokenByHash(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return domain.PasswordResetToken{}, ErrInvalidToken
	}
	if err != nil {
		return domain.PasswordResetToken{}, err
	}
	if row.Used {
		return domain.PasswordResetToken{}, ErrTokenAlreadyUsed
	}
	if row.Expired(s.Clock.now()) {
		return domain.PasswordResetToken{}, ErrTokenExpired
	}
	return row, nil
}

// ValidateToken reports whether token could be used right now. It changes
// nothing.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) error {
	_, err := s.lookup(ctx, token)
	return err
}

// ResetPassword consumes token and sets a new password. The token is checked
// before anything is written. On success the lockout is cleared and every
// refresh token of the account is deleted.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := slogx.FromContext(ctx)

	row, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}
	l = l.With(slog.String("account_id", row.AccountID))

	cred, err := s.Store.Credentials().GetCredentialByAccountID(ctx, row.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if !cred.Active {
		return ErrAccountDisabled
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	var revoked int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Conditional update: a concurrent reset with the same token loses here.
		if err := tx.ResetTokens().MarkResetTokenUsed(ctx, row.ID); err != nil {
			return err
		}
		if err := tx.Credentials().UpdatePasswordHash(ctx, cred.AccountID, hash); err != nil {
			return err
		}
		revoked, err = tx.RefreshTokens().DeleteAccountRefreshTokens(ctx, cred.AccountID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrTokenAlreadyUsed
	}
	if err != nil {
		l.Error("failed to reset password", slog.Any("error", err))
		return err
	}

	l.Info("password reset", slog.Int64("refresh_tokens_deleted", revoked))
	return nil
}

// CleanupExpiredTokens deletes reset tokens whose expiry has passed.
func (s *PasswordResetService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.Store.ResetTokens().DeleteExpiredResetTokens(ctx, s.Clock.now())
}
