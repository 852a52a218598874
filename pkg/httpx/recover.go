package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/saifdinehd/shopauth/pkg/alertx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

// RecoverMiddleware turns a handler panic into a 500 and reports it.
func RecoverMiddleware(reporter alertx.Reporter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				err := fmt.Errorf("panic: %v", rec)
				slogx.FromContext(ctx).Error("handler panicked",
					"err", err,
					"stack", string(debug.Stack()),
				)
				if reporter != nil {
					reporter.Report(ctx, err, map[string]string{
						"method": r.Method,
						"path":   r.URL.Path,
					})
				}

				WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"error":             "server_error",
					"error_description": "internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
