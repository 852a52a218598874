package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ForgotPassword asks for a reset link. The service answers the same way
// whether or not the email is registered.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.postJSON(ctx, "/api/auth/forgot-password", ForgotPasswordRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateResetToken reports whether a reset token can still be used.
func (c *SDKClient) ValidateResetToken(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodGet,
		"/api/auth/validate-reset-token?token="+url.QueryEscape(token), nil, "")
	if err != nil {
		return err
	}
	var out MessageResponse
	return decodeJSON(resp, &out)
}

// ResetPassword sets a new password using a reset token.
func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	var out MessageResponse
	return c.postJSON(ctx, "/api/auth/reset-password",
		ResetPasswordRequest{Token: token, NewPassword: newPassword}, &out)
}
