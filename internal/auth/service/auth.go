package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/cryptox"
	"github.com/saifdinehd/shopauth/pkg/idx"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService owns the credential lifecycle: registration, login, refresh
// and logout.
type AuthService struct {
	Store       store.Store
	Codec       TokenCodec
	ProfileSync *ProfileSyncService
	Lockout     LockoutPolicy
	Clock       Clock

	// RotateRefreshTokens revokes the presented refresh token on every
	// refresh and returns a new one. When false the same token is returned.
	RotateRefreshTokens bool
}

// Register creates a USER credential and its user-service profile. The
// credential and a profile outbox entry commit together; if the inline
// profile call fails the account stays pending and housekeeping retries it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.RegisterResult, error) {
	l := slogx.FromContext(ctx)

	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return domain.RegisterResult{}, ErrInvalidRequest
	}

	exists, err := s.Store.Credentials().EmailExists(ctx, in.Email)
	if err != nil {
		return domain.RegisterResult{}, err
	}
	if exists {
		return domain.RegisterResult{}, ErrDuplicateEmail
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		l.Error("failed to hash password", slog.Any("error", err))
		return domain.RegisterResult{}, err
	}

	now := s.Clock.now()
	cred := domain.Credential{
		ID:            idx.NewAt(now).String(),
		AccountID:     idx.NewAccountID(),
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          domain.RoleUser,
		Active:        true,
		ProfileStatus: domain.ProfilePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	profile := domain.Profile{
		AccountID: cred.AccountID,
		Email:     cred.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      cred.Role,
	}

	pending, err := s.ProfileSync.CreateWithProfile(ctx, cred, profile)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with a concurrent registration for the same email.
		return domain.RegisterResult{}, ErrDuplicateEmail
	}
	if err != nil {
		l.Error("failed to create credential", slog.Any("error", err))
		return domain.RegisterResult{}, err
	}

	l = l.With(slog.String("account_id", cred.AccountID))
	status, err := s.ProfileSync.Deliver(ctx, pending)
	if err != nil {
		// The outbox entry is committed, so housekeeping picks this up.
		l.Error("failed to record profile delivery", slog.Any("error", err))
		status = domain.ProfilePending
	}
	if status == domain.ProfileFailed {
		return domain.RegisterResult{}, fmt.Errorf("%w: profile could not be created", ErrUpstream)
	}

	l.Info("account registered", slog.String("profile_status", string(status)))
	return domain.RegisterResult{AccountID: cred.AccountID, ProfileStatus: status}, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends one verification on a throwaway hash so an
// unknown email costs as much as a wrong password.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("not-a-real-password")
	})
	_ = cryptox.VerifyPassword(password, dummyHash)
}

// Login checks, in order: lockout, password, active flag.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()
	policy := s.Lockout.withDefaults()

	cred, err := s.Store.Credentials().GetCredentialByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		burnPasswordCheck(password)
		l.Info("login for unknown email")
		return domain.AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.AuthResult{}, err
	}
	l = l.With(slog.String("account_id", cred.AccountID))

	if policy.IsLocked(cred.FailedAttempts, cred.LockedUntil, now) {
		l.Info("login on locked account", slog.Time("locked_until", *cred.LockedUntil))
		return domain.AuthResult{}, ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, cred.PasswordHash); err != nil {
		failed := cred.FailedAttempts
		if cred.LockedUntil != nil {
			// The previous lockout has elapsed; count from a fresh window.
			failed = 0
		}
		failed, lockedUntil := policy.OnFailedAttempt(failed, now)
		if err := s.Store.Credentials().UpdateLoginState(ctx, cred.AccountID, failed, lockedUntil); err != nil {
			l.Error("failed to record failed login", slog.Any("error", err))
			return domain.AuthResult{}, err
		}
		if lockedUntil != nil {
			l.Warn("account locked", slog.Int("failed_attempts", failed), slog.Time("locked_until", *lockedUntil))
		} else {
			l.Info("wrong password", slog.Int("failed_attempts", failed))
		}
		return domain.AuthResult{}, ErrInvalidCredentials
	}

	if !cred.Active {
		l.Info("login on disabled account")
		return domain.AuthResult{}, ErrAccountDisabled
	}

	access, err := s.issueAccess(cred)
	if err != nil {
		return domain.AuthResult{}, err
	}
	refresh, refreshRow, err := s.issueRefresh(cred.AccountID, now)
	if err != nil {
		return domain.AuthResult{}, err
	}

	// Upgrade hashes written with older argon2 parameters while the
	// plaintext is at hand.
	var rehashed string
	if cryptox.NeedsRehash(cred.PasswordHash) {
		if rehashed, err = cryptox.HashPassword(password); err != nil {
			l.Warn("failed to rehash password", slog.Any("error", err))
			rehashed = ""
		}
	}

	failed, lockedUntil := policy.OnSuccess()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().UpdateLoginState(ctx, cred.AccountID, failed, lockedUntil); err != nil {
			return err
		}
		if rehashed != "" {
			if err := tx.Credentials().UpdatePasswordHash(ctx, cred.AccountID, rehashed); err != nil {
				return err
			}
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, refreshRow)
	})
	if err != nil {
		l.Error("failed to persist login", slog.Any("error", err))
		return domain.AuthResult{}, err
	}

	l.Info("login succeeded")
	return s.result(cred, access, refresh), nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// verify, be stored, unrevoked and unexpired, and belong to an active account.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.AuthResult, error) {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	claims, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.AuthResult{}, ErrExpiredToken
		}
		l.Info("refresh token rejected", slog.Any("error", err))
		return domain.AuthResult{}, ErrInvalidToken
	}
	accountID := claims.Subject
	l = l.With(slog.String("account_id", accountID))

	hash := cryptox.FingerprintToken(refreshToken)
	stored, err := s.Store.RefreshTokens().GetActiveRefreshToken(ctx, accountID, hash)
	if errors.Is(err, store.ErrNotFound) {
		l.Info("refresh token unknown or revoked")
		return domain.AuthResult{}, ErrInvalidToken
	}
	if err != nil {
		return domain.AuthResult{}, err
	}
	if stored.Expired(now) {
		return domain.AuthResult{}, ErrExpiredToken
	}

	cred, err := s.Store.Credentials().GetCredentialByAccountID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthResult{}, ErrInvalidToken
	}
	if err != nil {
		return domain.AuthResult{}, err
	}
	if !cred.Active {
		return domain.AuthResult{}, ErrAccountDisabled
	}

	access, err := s.issueAccess(cred)
	if err != nil {
		return domain.AuthResult{}, err
	}

	if !s.RotateRefreshTokens {
		return s.result(cred, access, refreshToken), nil
	}

	next, nextRow, err := s.issueRefresh(accountID, now)
	if err != nil {
		return domain.AuthResult{}, err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, nextRow)
	})
	if errors.Is(err, store.ErrNotFound) {
		// A concurrent refresh rotated this token first.
		return domain.AuthResult{}, ErrInvalidToken
	}
	if err != nil {
		l.Error("failed to rotate refresh token", slog.Any("error", err))
		return domain.AuthResult{}, err
	}

	l.Info("refresh token rotated")
	return s.result(cred, access, next), nil
}

// Logout revokes a refresh token exactly once. Expired but authentic tokens
// may still be revoked; a second logout with the same token fails with
// ErrInvalidToken.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.VerifySignature(refreshToken)
	if err != nil || claims.ValidatePurpose(jwtx.PurposeRefresh) != nil {
		return ErrInvalidToken
	}

	err = s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(refreshToken))
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}

	l.Info("logged out", slog.String("account_id", claims.Subject))
	return nil
}

// Account returns the credential behind an authenticated account id.
func (s *AuthService) Account(ctx context.Context, accountID string) (domain.Credential, error) {
	cred, err := s.Store.Credentials().GetCredentialByAccountID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Credential{}, ErrAccountNotFound
	}
	return cred, err
}

func (s *AuthService) issueAccess(cred domain.Credential) (string, error) {
	token, _, err := s.Codec.IssueAccessToken(cred.Subject())
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return token, nil
}

func (s *AuthService) issueRefresh(accountID string, now time.Time) (string, domain.RefreshToken, error) {
	token, expiresAt, err := s.Codec.IssueRefreshToken(accountID)
	if err != nil {
		return "", domain.RefreshToken{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return token, domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		AccountID: accountID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

func (s *AuthService) result(cred domain.Credential, access, refresh string) domain.AuthResult {
	return domain.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    int64(s.Codec.AccessTTL() / time.Second),
		Role:         cred.Role,
		AccountID:    cred.AccountID,
		Email:        cred.Email,
	}
}
