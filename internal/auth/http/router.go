package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/pkg/alertx"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/saifdinehd/shopauth/pkg/slogx"

	_ "github.com/saifdinehd/shopauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.AccessVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limiters     httpx.LimiterFactory

	store                store.Store
	AuthService          *service.AuthService
	PasswordResetService *service.PasswordResetService
}

// NewRouter builds a router. A nil limiters factory means in-process rate
// limiting; a nil reporter means panics are only logged.
func NewRouter(
	verifier jwtx.AccessVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	limiters httpx.LimiterFactory,
	reporter alertx.Reporter,
) *Router {
	if limiters == nil {
		limiters = httpx.MemoryLimiters()
	}
	if reporter == nil {
		reporter = alertx.LogReporter{}
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		limiters:     limiters,
		store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.RecoverMiddleware(reporter),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPasswordReset()
	r.registerAccount()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Shop Authentication Service API
//	@version		1.0.0
//	@description	Credential lifecycle for the shop: registration, login, token refresh and password reset.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs.
//
//	@host						localhost:8081
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// limit builds a rate limit middleware whose buckets are scoped to one route.
func (r *Router) limit(scope string, config httpx.RateLimitConfig, key httpx.KeyExtractor) httpx.Middleware {
	return httpx.RateLimitWith(r.limiters(config, scope), config, key)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Registration and login are the brute-force targets: strict limits.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			r.limit("register", httpx.StrictLimit, httpx.IPKeyExtractor),
		),
	)

	// Login is limited per IP and email so one client can't spray a single
	// account and lock it out from everywhere.
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.limit("login", httpx.StrictLimit, httpx.IPAndJSONFieldKeyExtractor("email")),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.limit("refresh", httpx.ModerateLimit, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.limit("logout", httpx.ModerateLimit, httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{PasswordResetService: r.PasswordResetService}

	r.Mux.Handle("POST /api/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			r.limit("forgot-password", httpx.StrictLimit, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("GET /api/auth/validate-reset-token",
		httpx.Chain(http.HandlerFunc(h.HandleValidateToken),
			r.limit("validate-reset-token", httpx.ModerateLimit, httpx.IPKeyExtractor),
		),
	)

	r.Mux.Handle("POST /api/auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			r.limit("reset-password", httpx.StrictLimit, httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerAccount() {
	h := &MeHandler{AuthService: r.AuthService}

	// Authenticated endpoint - lenient rate limit by account
	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(jwtx.RoleUser, jwtx.RoleAdmin),
		r.limit("me", httpx.LenientLimit, httpx.CompositeKeyExtractor(":",
			httpx.AccountKeyExtractor,
			httpx.IPKeyExtractor,
		)),
	)

	r.Mux.Handle("GET /api/auth/me", secured)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(),
			r.limit("livez", httpx.LenientLimit, httpx.IPKeyExtractor),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.store),
			r.limit("readyz", httpx.LenientLimit, httpx.IPKeyExtractor),
		),
	)
}
