package httpx

import (
	"net/http"

	"github.com/saifdinehd/shopauth/pkg/jwtx"
)

// RequireRole lets the request through only when the authenticated role is
// one of roles. Must run after AuthnMiddleware.
func RequireRole(roles ...jwtx.Role) Middleware {
	want := make(map[jwtx.Role]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[RoleFromContext(r.Context())]; !ok {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "insufficient_role",
					"error_description": "caller role is not allowed to access this resource",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
