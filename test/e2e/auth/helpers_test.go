package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/app"
	"github.com/saifdinehd/shopauth/internal/auth/clients/userservice"
	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * The whole application is wired from environment variables exactly as
 * cmd/auth does it and served in-process; the user service is faked.
 */

const (
	adminEmail    = "admin@shop.local"
	adminPassword = "Admin1234"

	userEmail    = "jane@example.com"
	userPassword = "Secret123"
)

var jwtSecret = base64.StdEncoding.EncodeToString([]byte("e2e-secret-e2e-secret-e2e-secret"))

// TestMain relaxes the rate limits. Tests make many rapid requests from one
// address which would otherwise hit the strict production limits; the limits
// themselves are covered by the http package tests.
func TestMain(m *testing.M) {
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	httpx.StrictLimit = relaxed
	httpx.ModerateLimit = relaxed

	os.Exit(m.Run())
}

// userService is a stand-in for the user service that records the profiles
// it was asked to create.
type userService struct {
	mu       sync.Mutex
	down     bool
	profiles []userservice.CreateUserRequest
}

func (u *userService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/api/users" {
		http.NotFound(w, r)
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.down {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
		return
	}

	var req userservice.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	u.profiles = append(u.profiles, req)
	w.WriteHeader(http.StatusCreated)
}

func (u *userService) setDown(down bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.down = down
}

func (u *userService) created() []userservice.CreateUserRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]userservice.CreateUserRequest(nil), u.profiles...)
}

type authService struct {
	baseURL string
	client  *authsdk.SDKClient
	users   *userService
	dir     string
}

// setupAuthService starts the auth service on a SQLite file in a temporary
// directory. extra overrides or adds environment variables.
func setupAuthService(t *testing.T, extra map[string]string) *authService {
	t.Helper()
	return setupAuthServiceIn(t, t.TempDir(), &userService{}, extra)
}

func setupAuthServiceIn(t *testing.T, dir string, users *userService, extra map[string]string) *authService {
	t.Helper()

	usersSrv := httptest.NewServer(users)
	t.Cleanup(usersSrv.Close)

	env := map[string]string{
		"AUTH_JWT_SECRET":    jwtSecret,
		"AUTH_ISSUER":        "shopauth-e2e",
		"AUTH_DATABASE_FILE": filepath.Join(dir, "auth.db"),
		"AUTH_PEPPER_FILE":   filepath.Join(dir, "pepper"),
		"DATABASE_DRIVER":    "sqlite",
		"USER_SERVICE_URL":   usersSrv.URL,
		"NOTIFY_DRIVER":      "log",
		"ENV":                "test",
		"LOG_LEVEL":          "error",
		"LOG_FORMAT":         "json",
	}
	for k, v := range extra {
		env[k] = v
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	application, err := app.New(app.LoadConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("failed to shut down application: %v", err)
		}
	})

	return &authService{
		baseURL: srv.URL,
		client:  authsdk.NewSDKClient(srv.URL),
		users:   users,
		dir:     dir,
	}
}

// setupPostgres runs a postgres container and returns its DSN.
func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "auth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://shop:shop@%s:%s/auth?sslmode=disable", host, port.Port())
}

// registerAndLogin creates a USER account and logs it in.
func registerAndLogin(t *testing.T, svc *authService, email string) *authsdk.AuthResponse {
	t.Helper()

	reg, err := svc.client.Register(t.Context(), authsdk.RegisterRequest{
		Email:     email,
		Password:  userPassword,
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err, "Registration should succeed")
	require.Equal(t, "confirmed", reg.ProfileStatus)

	login, err := svc.client.Login(t.Context(), email, userPassword)
	require.NoError(t, err, "Login should succeed")
	assertAuthResponse(t, login)
	require.Equal(t, reg.UserID, login.UserID)
	return login
}

// assertAuthResponse verifies a token response has all required fields.
func assertAuthResponse(t *testing.T, resp *authsdk.AuthResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn)
}

// assertAPIError checks err is the given typed API error.
func assertAPIError(t *testing.T, err error, want *authsdk.APIError, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.ErrorIs(t, err, want, "%s - got: %v", context, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
