package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *authsdk.SDKClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return authsdk.NewSDKClient(srv.URL + "/")
}

func TestClientLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req authsdk.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "jane@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accessToken":"a","refreshToken":"r","tokenType":"Bearer","expiresIn":900,"role":"USER","userId":"u1","email":"jane@example.com"}`))
	})

	resp, err := client.Login(context.Background(), "jane@example.com", "Secret123")
	require.NoError(t, err)
	require.Equal(t, "a", resp.AccessToken)
	require.Equal(t, "r", resp.RefreshToken)
	require.Equal(t, int64(900), resp.ExpiresIn)
	require.Equal(t, "USER", resp.Role)
	require.Equal(t, "u1", resp.UserID)
}

func TestClientTypedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *authsdk.APIError
	}{
		{"locked", http.StatusLocked, `{"error":"account_locked","error_description":"locked"}`, authsdk.ErrAccountLocked},
		{"bad credentials", http.StatusUnauthorized, `{"error":"invalid_credentials","error_description":"nope"}`, authsdk.ErrInvalidCredentials},
		{"disabled", http.StatusForbidden, `{"error":"account_disabled","error_description":"off"}`, authsdk.ErrAccountDisabled},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Login(context.Background(), "jane@example.com", "x")
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestClientValidationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"validation_error","message":"request validation failed","details":{"password":"too short (min 8)"}}`))
	})

	_, err := client.Register(context.Background(), authsdk.RegisterRequest{})
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, authsdk.ErrorCodeValidation, apiErr.Code)
	require.Equal(t, "too short (min 8)", apiErr.Details["password"])
}

func TestClientRegisterAcceptsPending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"User created, profile pending","userId":"u1","profileStatus":"pending"}`))
	})

	resp, err := client.Register(context.Background(), authsdk.RegisterRequest{})
	require.NoError(t, err)
	require.Equal(t, "pending", resp.ProfileStatus)
}

func TestClientMeSendsBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"userId":"u1","email":"jane@example.com","role":"ADMIN","active":true,"profileStatus":"confirmed","createdAt":"2024-01-02T03:04:05Z"}`))
	})

	me, err := client.Me(context.Background(), "access-token")
	require.NoError(t, err)
	require.Equal(t, "ADMIN", me.Role)
	require.True(t, me.Active)
	require.Equal(t, 2024, me.CreatedAt.Year())
}

func TestClientValidateResetTokenEscapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "a+b/c=", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"message":"token is valid","success":true}`))
	})

	require.NoError(t, client.ValidateResetToken(context.Background(), "a+b/c="))
}

func TestClientUnknownErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream connect error"))
	})

	_, err := client.GetReadiness(context.Background())
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeServerError, apiErr.Code)
}

func TestAPIErrorWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	authsdk.ErrAccountLocked.WriteError(rec)

	require.Equal(t, http.StatusLocked, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"error":"account_locked","error_description":"account is temporarily locked, try again later"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	authsdk.NewValidationError(map[string]string{"email": "required"}).WriteError(rec)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"code":"validation_error","message":"request validation failed","details":{"email":"required"}}`, rec.Body.String())
}
