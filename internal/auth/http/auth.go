package http

import (
	"net/http"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/saifdinehd/shopauth/pkg/httpx"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleRegister creates an account.
//
//	@Summary		Register
//	@Description	Creates a USER credential and its profile in the user service.
//	@Description	Returns 201 when the profile was created and 202 when its creation is still pending and will be retried.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest				true	"Registration details"
//	@Success		201		{object}	authsdk.RegisterResponse			"Account and profile created"
//	@Success		202		{object}	authsdk.RegisterResponse			"Account created, profile pending"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse		"Validation failed"
//	@Failure		409		{object}	authsdk.ErrorResponse				"Email already registered"
//	@Failure		429		{object}	authsdk.ErrorResponse				"Rate limit exceeded"
//	@Failure		502		{object}	authsdk.ErrorResponse				"User service unavailable"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Email:     authsdk.NormalizeEmail(req.Email),
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status, message := http.StatusCreated, "account created"
	if res.ProfileStatus == domain.ProfilePending {
		status, message = http.StatusAccepted, "account created, profile setup pending"
	}
	httpx.WriteJSON(w, status, authsdk.RegisterResponse{
		Message:       message,
		UserID:        res.AccountID,
		ProfileStatus: string(res.ProfileStatus),
	})
}

// HandleLogin authenticates with email and password.
//
//	@Summary		Login
//	@Description	Exchanges email and password for an access token and a refresh token.
//	@Description	Five consecutive wrong passwords lock the account for 30 minutes.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest			true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse			"Tokens"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid email or password"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Account disabled"
//	@Failure		423		{object}	authsdk.ErrorResponse			"Account locked"
//	@Failure		429		{object}	authsdk.ErrorResponse			"Rate limit exceeded"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), authsdk.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authResponse(res))
}

// HandleRefresh issues a new access token.
//
//	@Summary		Refresh
//	@Description	Exchanges a refresh token for a new access token. Depending on configuration the refresh token is rotated or returned unchanged.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest			true	"Refresh token"
//	@Success		200		{object}	authsdk.AuthResponse			"Tokens"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid, revoked or expired refresh token"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Account disabled"
//	@Router			/api/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authResponse(res))
}

// HandleLogout revokes a refresh token.
//
//	@Summary		Logout
//	@Description	Revokes the refresh token. A token can be revoked once; a second call fails with invalid_token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest			true	"Refresh token"
//	@Success		200		{object}	authsdk.MessageResponse			"Logged out"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Unknown or already revoked token"
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.AuthService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "logged out", Success: true})
}

func authResponse(res domain.AuthResult) authsdk.AuthResponse {
	return authsdk.AuthResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    res.ExpiresIn,
		Role:         string(res.Role),
		UserID:       res.AccountID,
		Email:        res.Email,
	}
}
