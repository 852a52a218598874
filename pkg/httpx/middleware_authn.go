package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(authz[len("Bearer "):])
	return raw, raw != ""
}

// AuthnMiddleware requires a valid access token and puts its claims on the
// request context.
func AuthnMiddleware(v jwtx.AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "invalid_request", "missing bearer token")
				return
			}

			claims, err := v.VerifyAccess(raw)
			if errors.Is(err, jwtx.ErrExpired) {
				writeBearerError(w, "invalid_token", "token expired")
				return
			}
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "invalid_token", "token verification failed")
				return
			}

			ctx = ContextWithClaims(ctx, claims)
			ctx = slogx.WithAccount(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
