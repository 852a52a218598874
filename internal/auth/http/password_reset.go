package http

import (
	"net/http"

	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/saifdinehd/shopauth/pkg/httpx"
)

// forgotPasswordMessage is returned whether or not the email is known.
const forgotPasswordMessage = "if an account exists for this email, a reset link has been sent"

type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// HandleForgotPassword starts a password reset.
//
//	@Summary		Forgot password
//	@Description	Sends a reset link if the email belongs to an active account. The response is identical either way.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest		true	"Email"
//	@Success		200		{object}	authsdk.MessageResponse				"Request accepted"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse		"Validation failed"
//	@Failure		429		{object}	authsdk.ErrorResponse				"Rate limit exceeded"
//	@Router			/api/auth/forgot-password [post].
func (h *PasswordResetHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// Initiate never fails towards the caller.
	_ = h.PasswordResetService.Initiate(r.Context(), authsdk.NormalizeEmail(req.Email))
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: forgotPasswordMessage, Success: true})
}

// HandleValidateToken checks a reset token without consuming it.
//
//	@Summary		Validate reset token
//	@Description	Lets the reset form check a token before asking for a new password.
//	@Tags			Password
//	@Produce		json
//	@Param			token	query		string					true	"Reset token"
//	@Success		200		{object}	authsdk.MessageResponse	"Token is valid"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid, used or expired token"
//	@Router			/api/auth/validate-reset-token [get].
func (h *PasswordResetHandler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	if err := h.PasswordResetService.ValidateToken(r.Context(), token); err != nil {
		writeResetTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "token is valid", Success: true})
}

// HandleResetPassword sets a new password.
//
//	@Summary		Reset password
//	@Description	Consumes the reset token and sets a new password. All sessions of the account are ended and any lockout is cleared.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResetPasswordRequest		true	"Token and new password"
//	@Success		200		{object}	authsdk.MessageResponse				"Password changed"
//	@Failure		400		{object}	authsdk.ErrorResponse				"Invalid, used or expired token, or validation failed"
//	@Failure		403		{object}	authsdk.ErrorResponse				"Account disabled"
//	@Failure		404		{object}	authsdk.ErrorResponse				"Account not found"
//	@Router			/api/auth/reset-password [post].
func (h *PasswordResetHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeResetTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "password has been reset", Success: true})
}
