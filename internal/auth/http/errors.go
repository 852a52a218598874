package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// serviceErrors maps service outcomes to responses. Reset token errors are
// handled separately because they are client errors (400), not
// authentication failures (401).
var serviceErrors = []struct {
	err  error
	resp *authsdk.APIError
}{
	{service.ErrInvalidRequest, authsdk.ErrInvalidRequest},
	{service.ErrDuplicateEmail, authsdk.ErrDuplicateEmail},
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrAccountLocked, authsdk.ErrAccountLocked},
	{service.ErrAccountDisabled, authsdk.ErrAccountDisabled},
	{service.ErrAccountNotFound, authsdk.ErrAccountNotFound},
	{service.ErrInvalidToken, authsdk.ErrInvalidToken},
	{service.ErrExpiredToken, authsdk.ErrTokenExpired},
	{service.ErrTokenAlreadyUsed, authsdk.ErrResetTokenUsed},
	{service.ErrTokenExpired, authsdk.ErrResetTokenExpired},
	{service.ErrUpstream, authsdk.ErrUpstream},
}

// writeServiceError writes the response for err. Unknown errors are logged
// and become a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			m.resp.WriteError(w)
			return
		}
	}
	slogx.FromContext(r.Context()).Error("unhandled service error", slog.Any("error", err))
	authsdk.ErrServerError.WriteError(w)
}

// writeResetTokenError is writeServiceError for the password reset endpoints,
// where an unknown token is a 400.
func writeResetTokenError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInvalidToken) {
		authsdk.ErrInvalidResetToken.WriteError(w)
		return
	}
	writeServiceError(w, r, err)
}

// decodeAndValidate decodes the body into req and runs its validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate[T interface{ Validate() map[string]string }](w http.ResponseWriter, r *http.Request, req *T) bool {
	if err := httpx.DecodeJSON(w, r, req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return false
	}
	if details := (*req).Validate(); details != nil {
		authsdk.NewValidationError(details).WriteError(w)
		return false
	}
	return true
}
