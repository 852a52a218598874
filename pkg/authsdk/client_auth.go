package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account. The response's ProfileStatus is "pending"
// when the service accepted the credential but could not reach the user
// service yet.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.postJSON(ctx, "/api/auth/register", req, &out, http.StatusCreated, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for an access and refresh token pair.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.postJSON(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh obtains a new access token.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.postJSON(ctx, "/api/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	var out MessageResponse
	return c.postJSON(ctx, "/api/auth/logout", RefreshRequest{RefreshToken: refreshToken}, &out)
}

// Me returns the account behind accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, accessToken)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
