// Package storetest holds the behaviour every store driver must share. Driver
// packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a migrated, empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run runs the shared suite against the driver built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Credentials", func(t *testing.T) { testCredentials(t, newStore(t)) })
	t.Run("CredentialUniqueness", func(t *testing.T) { testCredentialUniqueness(t, newStore(t)) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newStore(t)) })
	t.Run("RevokeOnce", func(t *testing.T) { testRevokeOnce(t, newStore(t)) })
	t.Run("ResetTokens", func(t *testing.T) { testResetTokens(t, newStore(t)) })
	t.Run("ProfileOutbox", func(t *testing.T) { testProfileOutbox(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
}

// NewCredential returns an active USER credential with a fresh account id.
func NewCredential(email string) domain.Credential {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.Credential{
		ID:            idx.New().String(),
		AccountID:     idx.NewAccountID(),
		Email:         email,
		PasswordHash:  "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:          domain.RoleUser,
		Active:        true,
		ProfileStatus: domain.ProfilePending,
		CreatedAt:     now,
	}
}

func testCredentials(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := NewCredential("jane@example.com")
	require.NoError(t, s.Credentials().CreateCredential(ctx, c))

	got, err := s.Credentials().GetCredentialByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Equal(t, c.AccountID, got.AccountID)
	require.Equal(t, domain.RoleUser, got.Role)
	require.True(t, got.Active)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
	require.Equal(t, domain.ProfilePending, got.ProfileStatus)
	require.WithinDuration(t, c.CreatedAt, got.CreatedAt, time.Millisecond)

	// Email matching is exact.
	_, err = s.Credentials().GetCredentialByEmail(ctx, "Jane@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	exists, err := s.Credentials().EmailExists(ctx, "jane@example.com")
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = s.Credentials().EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, exists)

	locked := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, s.Credentials().UpdateLoginState(ctx, c.AccountID, 5, &locked))
	got, err = s.Credentials().GetCredentialByAccountID(ctx, c.AccountID)
	require.NoError(t, err)
	require.Equal(t, 5, got.FailedAttempts)
	require.NotNil(t, got.LockedUntil)
	require.WithinDuration(t, locked, *got.LockedUntil, time.Millisecond)

	require.NoError(t, s.Credentials().UpdatePasswordHash(ctx, c.AccountID, "$argon2id$new"))
	got, err = s.Credentials().GetCredentialByAccountID(ctx, c.AccountID)
	require.NoError(t, err)
	require.Equal(t, "$argon2id$new", got.PasswordHash)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)

	require.NoError(t, s.Credentials().SetProfileStatus(ctx, c.AccountID, domain.ProfileConfirmed))
	require.NoError(t, s.Credentials().SetActive(ctx, c.AccountID, false))
	got, err = s.Credentials().GetCredentialByAccountID(ctx, c.AccountID)
	require.NoError(t, err)
	require.Equal(t, domain.ProfileConfirmed, got.ProfileStatus)
	require.False(t, got.Active)

	require.ErrorIs(t, s.Credentials().SetActive(ctx, "missing", true), store.ErrNotFound)
	_, err = s.Credentials().GetCredentialByAccountID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testCredentialUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Credentials().CreateCredential(ctx, NewCredential("dup@example.com")))

	err := s.Credentials().CreateCredential(ctx, NewCredential("dup@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// Different case is a different email.
	require.NoError(t, s.Credentials().CreateCredential(ctx, NewCredential("Dup@example.com")))
}

func seedCredential(t *testing.T, s store.Store, email string) domain.Credential {
	t.Helper()
	c := NewCredential(email)
	require.NoError(t, s.Credentials().CreateCredential(context.Background(), c))
	return c
}

func testRefreshTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCredential(t, s, "rt@example.com")
	now := time.Now().UTC()

	live := domain.RefreshToken{ID: idx.New().String(), AccountID: c.AccountID, TokenHash: "live", ExpiresAt: now.Add(time.Hour)}
	old := domain.RefreshToken{ID: idx.New().String(), AccountID: c.AccountID, TokenHash: "old", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, live))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, old))

	got, err := s.RefreshTokens().GetActiveRefreshToken(ctx, c.AccountID, "live")
	require.NoError(t, err)
	require.False(t, got.Revoked)
	require.WithinDuration(t, live.ExpiresAt, got.ExpiresAt, time.Millisecond)

	// Lookup is scoped to the account.
	_, err = s.RefreshTokens().GetActiveRefreshToken(ctx, idx.NewAccountID(), "live")
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.RefreshTokens().GetActiveRefreshToken(ctx, c.AccountID, "old")
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err = s.RefreshTokens().DeleteAccountRefreshTokens(ctx, c.AccountID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func testRevokeOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCredential(t, s, "revoke@example.com")
	tok := domain.RefreshToken{ID: idx.New().String(), AccountID: c.AccountID, TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok))

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "h1"))
	require.ErrorIs(t, s.RefreshTokens().RevokeRefreshToken(ctx, "h1"), store.ErrNotFound)
	require.ErrorIs(t, s.RefreshTokens().RevokeRefreshToken(ctx, "unknown"), store.ErrNotFound)

	_, err := s.RefreshTokens().GetActiveRefreshToken(ctx, c.AccountID, "h1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Concurrent revokes of one token: exactly one wins.
	tok2 := domain.RefreshToken{ID: idx.New().String(), AccountID: c.AccountID, TokenHash: "h2", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, tok2))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RefreshTokens().RevokeRefreshToken(ctx, "h2")
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func testResetTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := seedCredential(t, s, "reset@example.com")
	now := time.Now().UTC()

	tok := domain.PasswordResetToken{
		ID:        idx.New().String(),
		AccountID: c.AccountID,
		Email:     c.Email,
		TokenHash: "reset-hash",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, s.ResetTokens().CreateResetToken(ctx, tok))

	got, err := s.ResetTokens().GetResetTokenByHash(ctx, "reset-hash")
	require.NoError(t, err)
	require.Equal(t, c.AccountID, got.AccountID)
	require.Equal(t, c.Email, got.Email)
	require.False(t, got.Used)

	require.NoError(t, s.ResetTokens().MarkResetTokenUsed(ctx, tok.ID))
	require.ErrorIs(t, s.ResetTokens().MarkResetTokenUsed(ctx, tok.ID), store.ErrNotFound)

	got, err = s.ResetTokens().GetResetTokenByHash(ctx, "reset-hash")
	require.NoError(t, err)
	require.True(t, got.Used)

	expired := domain.PasswordResetToken{
		ID:        idx.New().String(),
		AccountID: c.AccountID,
		Email:     c.Email,
		TokenHash: "expired-hash",
		ExpiresAt: now.Add(-time.Minute),
	}
	require.NoError(t, s.ResetTokens().CreateResetToken(ctx, expired))

	n, err := s.ResetTokens().DeleteExpiredResetTokens(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = s.ResetTokens().DeleteAccountResetTokens(ctx, c.AccountID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.ResetTokens().GetResetTokenByHash(ctx, "reset-hash")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testProfileOutbox(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	var entries []domain.PendingProfile
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		c := seedCredential(t, s, email)
		p := domain.PendingProfile{
			ID: idx.New().String(),
			Profile: domain.Profile{
				AccountID: c.AccountID,
				Email:     c.Email,
				FirstName: "First",
				LastName:  "Last",
				Role:      domain.RoleUser,
			},
			NextAttemptAt: now.Add(time.Duration(i-1) * time.Minute), // -1m, now, +1m
			CreatedAt:     now,
		}
		require.NoError(t, s.ProfileOutbox().EnqueueProfile(ctx, p))
		entries = append(entries, p)
	}

	lease := now.Add(5 * time.Minute)
	due, err := s.ProfileOutbox().ClaimDueProfiles(ctx, now, lease, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.ElementsMatch(t, []string{entries[0].ID, entries[1].ID}, []string{due[0].ID, due[1].ID})
	require.Equal(t, "First", due[0].Profile.FirstName)
	require.Equal(t, domain.RoleUser, due[0].Profile.Role)
	require.WithinDuration(t, lease, due[0].NextAttemptAt, time.Millisecond)

	// Leased entries are not handed out again.
	again, err := s.ProfileOutbox().ClaimDueProfiles(ctx, now, lease, 10)
	require.NoError(t, err)
	require.Empty(t, again)

	// Once the lease runs out they are due again, all three now.
	limited, err := s.ProfileOutbox().ClaimDueProfiles(ctx, lease, lease.Add(5*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	next := now.Add(time.Hour)
	require.NoError(t, s.ProfileOutbox().RecordProfileFailure(ctx, entries[0].ID, 1, "connection refused", next))

	got, err := s.ProfileOutbox().GetPendingProfile(ctx, entries[0].Profile.AccountID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)
	require.Equal(t, "connection refused", got.LastError)
	require.WithinDuration(t, next, got.NextAttemptAt, time.Millisecond)

	require.NoError(t, s.ProfileOutbox().DeleteProfile(ctx, entries[0].ID))
	require.ErrorIs(t, s.ProfileOutbox().DeleteProfile(ctx, entries[0].ID), store.ErrNotFound)
	_, err = s.ProfileOutbox().GetPendingProfile(ctx, entries[0].Profile.AccountID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// One outbox entry per account.
	dup := entries[1]
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.ProfileOutbox().EnqueueProfile(ctx, dup), store.ErrAlreadyExists)
}

func testTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := NewCredential("tx@example.com")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().CreateCredential(ctx, c); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := s.Credentials().EmailExists(ctx, c.Email)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Credentials().CreateCredential(ctx, c)
	}))
	exists, err = s.Credentials().EmailExists(ctx, c.Email)
	require.NoError(t, err)
	require.True(t, exists)

	// No nesting.
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.Error(t, tx.WithTx(ctx, func(store.Tx) error { return nil }))
		return nil
	}))
}
