package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/pkg/cryptox"
	"github.com/saifdinehd/shopauth/pkg/idx"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestRegisterThenLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg := h.register(t, "a@x.com", "Passw0rd1")
	require.Equal(t, domain.ProfileConfirmed, reg.ProfileStatus)
	require.Len(t, reg.AccountID, 36)

	require.Equal(t, 1, h.profiles.callCount())
	require.Equal(t, domain.Profile{
		AccountID: reg.AccountID,
		Email:     "a@x.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      domain.RoleUser,
	}, h.profiles.calls[0])

	cred := h.credential(t, "a@x.com")
	require.Equal(t, domain.RoleUser, cred.Role)
	require.True(t, cred.Active)
	require.Zero(t, cred.FailedAttempts)
	require.NotEqual(t, "Passw0rd1", cred.PasswordHash)

	res, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.Equal(t, "Bearer", res.TokenType)
	require.Equal(t, int64(15*60), res.ExpiresIn)
	require.Equal(t, reg.AccountID, res.AccountID)
	require.Equal(t, "a@x.com", res.Email)
	require.Equal(t, domain.RoleUser, res.Role)

	accountID, err := h.codec.ExtractAccountID(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.AccountID, accountID)

	// The refresh token is stored by fingerprint only.
	stored, err := h.store.RefreshTokens().GetActiveRefreshToken(ctx, reg.AccountID, cryptox.FingerprintToken(res.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, h.clock.Now().Add(jwtx.DefaultRefreshTokenTTL), stored.ExpiresAt)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.register(t, "dup@x.com", "Passw0rd1")

	_, err := h.auth.Register(context.Background(), RegisterInput{
		Email:     "dup@x.com",
		Password:  "Passw0rd1",
		FirstName: "Someone",
		LastName:  "Else",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
	require.Equal(t, 1, h.profiles.callCount())
}

func TestRegisterRejectsEmptyInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Register(context.Background(), RegisterInput{Email: "  ", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLoginLockoutScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com", "Passw0rd1")

	_, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := h.auth.Login(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}

	cred := h.credential(t, "a@x.com")
	require.Equal(t, 5, cred.FailedAttempts)
	require.NotNil(t, cred.LockedUntil)
	require.Equal(t, h.clock.Now().Add(30*time.Minute), *cred.LockedUntil)

	_, err = h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.ErrorIs(t, err, ErrAccountLocked)
	require.Equal(t, 5, h.credential(t, "a@x.com").FailedAttempts, "locked attempts do not count")

	h.clock.Advance(29 * time.Minute)
	_, err = h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.ErrorIs(t, err, ErrAccountLocked)

	h.clock.Advance(time.Minute + time.Second)
	_, err = h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	cred = h.credential(t, "a@x.com")
	require.Zero(t, cred.FailedAttempts)
	require.Nil(t, cred.LockedUntil)
}

func TestLoginAfterElapsedLockoutStartsFreshWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com", "Passw0rd1")

	for range 5 {
		_, _ = h.auth.Login(ctx, "a@x.com", "wrong")
	}
	h.clock.Advance(31 * time.Minute)

	_, err := h.auth.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	cred := h.credential(t, "a@x.com")
	require.Equal(t, 1, cred.FailedAttempts)
	require.Nil(t, cred.LockedUntil)
}

func TestLoginDoesNotRevealUnknownEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com", "Passw0rd1")

	_, unknown := h.auth.Login(ctx, "nobody@x.com", "Passw0rd1")
	_, wrong := h.auth.Login(ctx, "a@x.com", "Wrong0000")
	require.ErrorIs(t, unknown, ErrInvalidCredentials)
	require.ErrorIs(t, wrong, ErrInvalidCredentials)
	require.Equal(t, unknown.Error(), wrong.Error())

	// Emails match exactly as stored.
	_, err := h.auth.Login(ctx, "A@X.COM", "Passw0rd1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginChecksActiveAfterPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.register(t, "a@x.com", "Passw0rd1")
	require.NoError(t, h.store.Credentials().SetActive(ctx, reg.AccountID, false))

	_, err := h.auth.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.register(t, "old@x.com", "Passw0rd1")

	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("Passw0rd1"+cryptox.GetPepper()), salt, 1, 8*1024, 1, 32)
	old := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, 8*1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))
	require.True(t, cryptox.NeedsRehash(old))
	require.NoError(t, h.store.Credentials().UpdatePasswordHash(ctx, reg.AccountID, old))

	_, err := h.auth.Login(ctx, "old@x.com", "Passw0rd1")
	require.NoError(t, err)

	cred := h.credential(t, "old@x.com")
	require.NotEqual(t, old, cred.PasswordHash)
	require.False(t, cryptox.NeedsRehash(cred.PasswordHash))
	require.NoError(t, cryptox.VerifyPassword("Passw0rd1", cred.PasswordHash))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the same refresh token without rotation", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		h.clock.Advance(time.Minute)
		res, err := h.auth.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, login.RefreshToken, res.RefreshToken)
		require.NotEqual(t, login.AccessToken, res.AccessToken)
		require.Equal(t, login.AccountID, res.AccountID)

		// Still usable.
		_, err = h.auth.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("rotation revokes the presented token", func(t *testing.T) {
		h := newHarness(t)
		h.auth.RotateRefreshTokens = true
		h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		res, err := h.auth.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, login.RefreshToken, res.RefreshToken)

		_, err = h.auth.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)

		_, err = h.auth.Refresh(ctx, res.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("rejects malformed and access tokens", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		_, err = h.auth.Refresh(ctx, "not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
		_, err = h.auth.Refresh(ctx, login.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown token is invalid", func(t *testing.T) {
		h := newHarness(t)
		reg := h.register(t, "a@x.com", "Passw0rd1")

		// Authentic but never stored.
		token, _, err := h.codec.IssueRefreshToken(reg.AccountID)
		require.NoError(t, err)
		_, err = h.auth.Refresh(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("codec expiry", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		h.clock.Advance(jwtx.DefaultRefreshTokenTTL + time.Second)
		_, err = h.auth.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("store expiry", func(t *testing.T) {
		h := newHarness(t)
		reg := h.register(t, "a@x.com", "Passw0rd1")

		token, _, err := h.codec.IssueRefreshToken(reg.AccountID)
		require.NoError(t, err)
		require.NoError(t, h.store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			AccountID: reg.AccountID,
			TokenHash: cryptox.FingerprintToken(token),
			ExpiresAt: h.clock.Now().Add(time.Minute),
			CreatedAt: h.clock.Now(),
		}))

		h.clock.Advance(2 * time.Minute)
		_, err = h.auth.Refresh(ctx, token)
		require.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("disabled account", func(t *testing.T) {
		h := newHarness(t)
		reg := h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		require.NoError(t, h.store.Credentials().SetActive(ctx, reg.AccountID, false))
		_, err = h.auth.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestLogoutRevokesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "a@x.com", "Passw0rd1")
	login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(ctx, login.RefreshToken))
	require.ErrorIs(t, h.auth.Logout(ctx, login.RefreshToken), ErrInvalidToken)

	_, err = h.auth.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("expired refresh token can still be revoked", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		h.clock.Advance(jwtx.DefaultRefreshTokenTTL + time.Hour)
		require.NoError(t, h.auth.Logout(ctx, login.RefreshToken))
	})

	t.Run("access tokens are rejected", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "a@x.com", "Passw0rd1")
		login, err := h.auth.Login(ctx, "a@x.com", "Passw0rd1")
		require.NoError(t, err)

		require.ErrorIs(t, h.auth.Logout(ctx, login.AccessToken), ErrInvalidToken)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		h := newHarness(t)
		require.ErrorIs(t, h.auth.Logout(ctx, "garbage"), ErrInvalidToken)
	})
}

func TestAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.register(t, "a@x.com", "Passw0rd1")

	cred, err := h.auth.Account(ctx, reg.AccountID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", cred.Email)

	_, err = h.auth.Account(ctx, idx.NewAccountID())
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestConcurrentRegistrationKeepsEmailUnique(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	errs := make(chan error, 4)
	for range 4 {
		go func() {
			_, err := h.auth.Register(ctx, RegisterInput{Email: "race@x.com", Password: "Passw0rd1", FirstName: "Ra", LastName: "Ce"})
			errs <- err
		}()
	}

	ok := 0
	for range 4 {
		err := <-errs
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrDuplicateEmail)
	}
	require.Equal(t, 1, ok)

	exists, err := h.store.Credentials().EmailExists(ctx, "race@x.com")
	require.NoError(t, err)
	require.True(t, exists)
}
