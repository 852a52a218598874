/*
Package authsdk provides the wire types and a client SDK for the shop auth
service.

# Overview

The request and response types in this package are shared by the server
(internal/auth/http) and its callers, so both sides agree on the JSON
shape. Field names are camelCase:

	{"accessToken": "...", "refreshToken": "...", "expiresIn": 900,
	 "role": "USER", "userId": "...", "email": "..."}

# Client

	client := authsdk.NewSDKClient("https://auth.example.com")

	reg, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:     "jane@example.com",
		Password:  "Secret123",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	tokens, err := client.Login(ctx, "jane@example.com", "Secret123")
	me, err := client.Me(ctx, tokens.AccessToken)

	tokens, err = client.Refresh(ctx, tokens.RefreshToken)
	err = client.Logout(ctx, tokens.RefreshToken)

Password reset:

	_, err := client.ForgotPassword(ctx, "jane@example.com")
	err = client.ValidateResetToken(ctx, tokenFromEmail)
	err = client.ResetPassword(ctx, tokenFromEmail, "NewSecret456")

# Errors

Every error answered by the service is returned as an *APIError. The
predefined values can be matched with errors.Is:

	_, err := client.Login(ctx, email, password)
	switch {
	case errors.Is(err, authsdk.ErrAccountLocked):
		// back off
	case errors.Is(err, authsdk.ErrInvalidCredentials):
		// wrong email or password
	}

Validation failures carry per-field messages in APIError.Details.

# Validation

Register, reset and forgot-password requests expose Validate, returning a
field to message map or nil:

  - email must be a valid address
  - passwords are 8-128 characters with an uppercase, a lowercase and a digit
  - first and last names are 2-50 characters after trimming
*/
package authsdk
