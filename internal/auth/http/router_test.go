package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	httpapi "github.com/saifdinehd/shopauth/internal/auth/http"
	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "Secret123"
)

type stubProfiles struct {
	mu  sync.Mutex
	err error
}

func (s *stubProfiles) CreateProfile(context.Context, domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubProfiles) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type captureNotifier struct {
	mu     sync.Mutex
	tokens []string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, _, token, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, token)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tokens)
}

func (n *captureNotifier) last(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.tokens)
	return n.tokens[len(n.tokens)-1]
}

type testServer struct {
	url      string
	client   *authsdk.SDKClient
	store    *sqlite.Store
	profiles *stubProfiles
	notifier *captureNotifier
}

// permissiveLimiters keeps the rate limits out of the way of tests that
// hammer one endpoint on purpose.
func permissiveLimiters(httpx.RateLimitConfig, string) httpx.Limiter {
	return httpx.NewMemoryLimiter(httpx.RateLimitConfig{
		RequestsPerWindow: 1000,
		Window:            time.Minute,
		Burst:             1000,
	})
}

func newTestServer(t *testing.T, limiters httpx.LimiterFactory) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewHMACCodec(jwtx.CodecConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "shopauth-test",
	})
	require.NoError(t, err)

	ts := &testServer{
		store:    st,
		profiles: &stubProfiles{},
		notifier: &captureNotifier{},
	}

	profileSync := &service.ProfileSyncService{Store: st, Profiles: ts.profiles}
	router := httpapi.NewRouter(codec, "test", st, slogx.Discard(), limiters, nil)
	router.AuthService = &service.AuthService{
		Store:       st,
		Codec:       codec,
		ProfileSync: profileSync,
		Lockout:     service.DefaultLockoutPolicy(),
	}
	router.PasswordResetService = &service.PasswordResetService{
		Store:    st,
		Notifier: ts.notifier,
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ts.url = srv.URL
	ts.client = authsdk.NewSDKClient(srv.URL)
	return ts
}

func (ts *testServer) register(t *testing.T, email string) *authsdk.RegisterResponse {
	t.Helper()
	resp, err := ts.client.Register(t.Context(), authsdk.RegisterRequest{
		Email:     email,
		Password:  testPassword,
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	return resp
}

func requireAPIError(t *testing.T, err error, want *authsdk.APIError) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, want), "want %s (%d), got %v", want.Code, want.StatusCode, err)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)

	t.Run("created", func(t *testing.T) {
		resp := ts.register(t, testEmail)
		require.Equal(t, "confirmed", resp.ProfileStatus)
		require.NotEmpty(t, resp.UserID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := ts.client.Register(t.Context(), authsdk.RegisterRequest{
			Email: testEmail, Password: testPassword, FirstName: "Jane", LastName: "Doe",
		})
		requireAPIError(t, err, authsdk.ErrDuplicateEmail)
	})

	t.Run("profile pending", func(t *testing.T) {
		ts.profiles.fail(errors.New("user service down"))
		t.Cleanup(func() { ts.profiles.fail(nil) })

		resp := ts.register(t, "pending@example.com")
		require.Equal(t, "pending", resp.ProfileStatus)

		// The credential exists already and can log in.
		_, err := ts.client.Login(t.Context(), "pending@example.com", testPassword)
		require.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := ts.client.Register(t.Context(), authsdk.RegisterRequest{
			Email:     "not-an-email",
			Password:  "short",
			FirstName: "J",
		})
		require.Error(t, err)

		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, authsdk.ErrorCodeValidation, apiErr.Code)
		require.Contains(t, apiErr.Details, "email")
		require.Contains(t, apiErr.Details, "password")
		require.Contains(t, apiErr.Details, "firstName")
		require.Contains(t, apiErr.Details, "lastName")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.url+"/api/auth/register", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRegisterReturnsAcceptedWhilePending(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	ts.profiles.fail(errors.New("user service down"))

	body := `{"email":"late@example.com","password":"Secret123","firstName":"Late","lastName":"Comer"}`
	resp, err := http.Post(ts.url+"/api/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	reg := ts.register(t, testEmail)

	res, err := ts.client.Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.Equal(t, "Bearer", res.TokenType)
	require.Equal(t, int64((15 * time.Minute).Seconds()), res.ExpiresIn)
	require.Equal(t, "USER", res.Role)
	require.Equal(t, reg.UserID, res.UserID)
	require.Equal(t, testEmail, res.Email)

	_, err = ts.client.Login(t.Context(), testEmail, "Wrong1234")
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)

	_, err = ts.client.Login(t.Context(), "nobody@example.com", testPassword)
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)
}

func TestLoginLockout(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	ts.register(t, testEmail)

	for i := 0; i < 5; i++ {
		_, err := ts.client.Login(t.Context(), testEmail, "Wrong1234")
		requireAPIError(t, err, authsdk.ErrInvalidCredentials)
	}

	// Even the right password is refused while locked.
	_, err := ts.client.Login(t.Context(), testEmail, testPassword)
	requireAPIError(t, err, authsdk.ErrAccountLocked)
}

func TestLoginDisabledAccount(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	reg := ts.register(t, testEmail)
	require.NoError(t, ts.store.Credentials().SetActive(t.Context(), reg.UserID, false))

	_, err := ts.client.Login(t.Context(), testEmail, testPassword)
	requireAPIError(t, err, authsdk.ErrAccountDisabled)

	// A wrong password still reads as wrong credentials.
	_, err = ts.client.Login(t.Context(), testEmail, "Wrong1234")
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	ts.register(t, testEmail)

	login, err := ts.client.Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)

	refreshed, err := ts.client.Refresh(t.Context(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Equal(t, login.RefreshToken, refreshed.RefreshToken, "refresh tokens are not rotated by default")

	// An access token is not a refresh token.
	_, err = ts.client.Refresh(t.Context(), login.AccessToken)
	requireAPIError(t, err, authsdk.ErrInvalidToken)

	_, err = ts.client.Refresh(t.Context(), "garbage")
	requireAPIError(t, err, authsdk.ErrInvalidToken)

	require.NoError(t, ts.client.Logout(t.Context(), login.RefreshToken))
	requireAPIError(t, ts.client.Logout(t.Context(), login.RefreshToken), authsdk.ErrInvalidToken)

	_, err = ts.client.Refresh(t.Context(), login.RefreshToken)
	requireAPIError(t, err, authsdk.ErrInvalidToken)
}

func TestEmptyRefreshTokenIsValidationError(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)

	_, err := ts.client.Refresh(t.Context(), "")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Details, "refreshToken")
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	reg := ts.register(t, testEmail)

	login, err := ts.client.Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)

	me, err := ts.client.Me(t.Context(), login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.UserID, me.UserID)
	require.Equal(t, testEmail, me.Email)
	require.Equal(t, "USER", me.Role)
	require.True(t, me.Active)
	require.Equal(t, "confirmed", me.ProfileStatus)

	_, err = ts.client.Me(t.Context(), "")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// A refresh token is not a bearer credential.
	_, err = ts.client.Me(t.Context(), login.RefreshToken)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)
	ts.register(t, testEmail)

	login, err := ts.client.Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)

	known, err := ts.client.ForgotPassword(t.Context(), testEmail)
	require.NoError(t, err)
	unknown, err := ts.client.ForgotPassword(t.Context(), "nobody@example.com")
	require.NoError(t, err)
	require.Equal(t, known, unknown, "response must not reveal whether the email exists")
	require.Equal(t, 1, ts.notifier.count())

	token := ts.notifier.last(t)
	require.NoError(t, ts.client.ValidateResetToken(t.Context(), token))

	const newPassword = "Changed456"
	require.NoError(t, ts.client.ResetPassword(t.Context(), token, newPassword))

	err = ts.client.ResetPassword(t.Context(), token, "Another789")
	requireAPIError(t, err, authsdk.ErrResetTokenUsed)
	requireAPIError(t, ts.client.ValidateResetToken(t.Context(), token), authsdk.ErrResetTokenUsed)

	_, err = ts.client.Login(t.Context(), testEmail, testPassword)
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)
	_, err = ts.client.Login(t.Context(), testEmail, newPassword)
	require.NoError(t, err)

	// Sessions from before the reset are gone.
	_, err = ts.client.Refresh(t.Context(), login.RefreshToken)
	requireAPIError(t, err, authsdk.ErrInvalidToken)
}

func TestResetTokenErrors(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)

	requireAPIError(t, ts.client.ValidateResetToken(t.Context(), "unknown-token"), authsdk.ErrInvalidResetToken)
	requireAPIError(t, ts.client.ResetPassword(t.Context(), "unknown-token", "Changed456"), authsdk.ErrInvalidResetToken)

	resp, err := http.Get(ts.url + "/api/auth/validate-reset-token")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Weak new passwords are rejected before the token is looked at.
	err = ts.client.ResetPassword(t.Context(), "unknown-token", "weak")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, authsdk.ErrorCodeValidation, apiErr.Code)
	require.Contains(t, apiErr.Details, "newPassword")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)

	live, err := ts.client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := ts.client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks["database"])

	require.NoError(t, ts.store.Close())
	resp, err := http.Get(ts.url + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(httpx.RateLimitConfig, string) httpx.Limiter {
		return httpx.NewMemoryLimiter(httpx.RateLimitConfig{
			RequestsPerWindow: 2,
			Window:            time.Hour,
			Burst:             2,
		})
	})

	for i := 0; i < 2; i++ {
		_, err := ts.client.ForgotPassword(t.Context(), testEmail)
		require.NoError(t, err)
	}

	resp, err := http.Post(ts.url+"/api/auth/forgot-password", "application/json",
		strings.NewReader(`{"email":"jane@example.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Buckets are per route, so login is unaffected.
	_, err = ts.client.Login(t.Context(), testEmail, testPassword)
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)
}

func TestSwaggerIsServed(t *testing.T) {
	ts := newTestServer(t, permissiveLimiters)

	resp, err := http.Get(ts.url + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
