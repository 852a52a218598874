package http

import (
	"log/slog"
	"net/http"

	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/pkg/authsdk"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

type MeHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP returns the authenticated account.
//
//	@Summary		Current account
//	@Description	Returns the account behind the bearer access token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"Account"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Account no longer exists"
//	@Router			/api/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID := httpx.AccountIDFromContext(ctx)
	if accountID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	cred, err := h.AuthService.Account(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load account", slog.Any("error", err))
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		UserID:        cred.AccountID,
		Email:         cred.Email,
		Role:          string(cred.Role),
		Active:        cred.Active,
		ProfileStatus: string(cred.ProfileStatus),
		CreatedAt:     cred.CreatedAt,
	})
}
