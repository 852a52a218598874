package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var errUserServiceDown = errors.New("user service down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeProfiles struct {
	mu       sync.Mutex
	failures int
	calls    []domain.Profile
}

func (f *fakeProfiles) CreateProfile(_ context.Context, p domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.failures > 0 {
		f.failures--
		return errUserServiceDown
	}
	return nil
}

func (f *fakeProfiles) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
}

func (f *fakeProfiles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type sentReset struct {
	Email, Token, DisplayName string
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentReset
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, token, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReset{Email: email, Token: token, DisplayName: displayName})
	return f.err
}

func (f *fakeNotifier) last(t *testing.T) sentReset {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (r *recordingReporter) Report(_ context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type harness struct {
	store    store.Store
	clock    *fakeClock
	codec    *jwtx.HMACCodec
	profiles *fakeProfiles
	notifier *fakeNotifier
	alerts   *recordingReporter

	auth      *AuthService
	reset     *PasswordResetService
	sync      *ProfileSyncService
	bootstrap *BootstrapService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	clock := newFakeClock()
	codec, err := jwtx.NewHMACCodec(jwtx.CodecConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "shopauth-test",
		Now:    clock.Now,
	})
	require.NoError(t, err)

	h := &harness{
		store:    s,
		clock:    clock,
		codec:    codec,
		profiles: &fakeProfiles{},
		notifier: &fakeNotifier{},
		alerts:   &recordingReporter{},
	}
	h.sync = &ProfileSyncService{
		Store:    s,
		Profiles: h.profiles,
		Alerts:   h.alerts,
		Clock:    clock.Now,
	}
	h.auth = &AuthService{
		Store:       s,
		Codec:       codec,
		ProfileSync: h.sync,
		Lockout:     DefaultLockoutPolicy(),
		Clock:       clock.Now,
	}
	h.reset = &PasswordResetService{
		Store:    s,
		Notifier: h.notifier,
		Alerts:   h.alerts,
		Clock:    clock.Now,
	}
	h.bootstrap = &BootstrapService{ProfileSync: h.sync, Clock: clock.Now}
	return h
}

func (h *harness) register(t *testing.T, email, password string) domain.RegisterResult {
	t.Helper()
	res, err := h.auth.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return res
}

func (h *harness) credential(t *testing.T, email string) domain.Credential {
	t.Helper()
	c, err := h.store.Credentials().GetCredentialByEmail(context.Background(), email)
	require.NoError(t, err)
	return c
}
