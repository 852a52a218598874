package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saifdinehd/shopauth/internal/auth/clients/userservice"
	httpapi "github.com/saifdinehd/shopauth/internal/auth/http"
	"github.com/saifdinehd/shopauth/internal/auth/notify"
	"github.com/saifdinehd/shopauth/internal/auth/service"
	"github.com/saifdinehd/shopauth/internal/auth/store"
	"github.com/saifdinehd/shopauth/internal/auth/store/drivers/postgres"
	"github.com/saifdinehd/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/saifdinehd/shopauth/pkg/alertx"
	"github.com/saifdinehd/shopauth/pkg/cryptox"
	"github.com/saifdinehd/shopauth/pkg/httpx"
	"github.com/saifdinehd/shopauth/pkg/jwtx"
	"github.com/saifdinehd/shopauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	redisKeyPrefix = "shopauth:rl"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	codec    *jwtx.HMACCodec
	alerts   alertx.Reporter
	sentry   *alertx.SentryReporter
	redis    *redis.Client
	notifier service.Notifier
	amqp     *notify.AMQPPublisher

	// Services
	authService         *service.AuthService
	passwordReset       *service.PasswordResetService
	profileSync         *service.ProfileSyncService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService
	housekeepingStarted bool

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, err
	}

	if err := app.initAlerts(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initCodec(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initNotifier()
	app.initServices()
	app.initHTTP(ctx)

	if err := app.seedAdmin(ctx); err != nil {
		_ = app.close()
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()
	app.housekeepingStarted = true

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"notifier", app.cfg.NotifyDriver,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	if app.housekeepingStarted {
		app.housekeepingService.Stop()
		app.housekeepingStarted = false
	}

	if err := app.close(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// close releases the backing connections. The database goes last so the
// error that matters most is the one returned.
func (app *Application) close() error {
	if app.amqp != nil {
		if err := app.amqp.Close(); err != nil {
			app.logger.Error("error closing amqp connection", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if app.sentry != nil {
		app.sentry.Flush()
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initAlerts picks the operator alert channel. Without a DSN alerts are
// only logged.
func (app *Application) initAlerts() error {
	app.alerts = alertx.LogReporter{}

	sr, err := alertx.InitSentry(app.cfg.SentryDSN, app.cfg.Env, BuildVersion)
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	if sr != nil {
		app.sentry = sr
		app.alerts = sr
		app.logger.Info("sentry alerts enabled")
	}
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err := postgres.NewStore(ctx, app.cfg.DatabaseURL, postgres.Options{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db

	default:
		host := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(host)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initCodec() error {
	secret, err := jwtx.DecodeSecret(app.cfg.JWTSecret)
	if err != nil {
		return err
	}

	codec, err := jwtx.NewHMACCodec(jwtx.CodecConfig{
		Secret:     secret,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec
	return nil
}

// initNotifier selects how password reset links leave the service
func (app *Application) initNotifier() {
	composer := notify.Composer{
		FrontendURL: app.cfg.FrontendURL,
		From:        app.cfg.MailFrom,
		LinkTTL:     app.cfg.ResetTokenTTL,
	}

	switch app.cfg.NotifyDriver {
	case NotifySMTP:
		app.notifier = &notify.SMTPSender{
			Composer: composer,
			Config: notify.SMTPConfig{
				Host:     app.cfg.SMTPHost,
				Port:     app.cfg.SMTPPort,
				Username: app.cfg.SMTPUsername,
				Password: app.cfg.SMTPPassword,
			},
		}
	case NotifyAMQP:
		app.amqp = notify.NewAMQPPublisher(app.cfg.RabbitMQURL, composer)
		app.notifier = app.amqp
	default:
		app.notifier = &notify.WriterSender{Composer: composer, Out: os.Stdout}
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.profileSync = &service.ProfileSyncService{
		Store:       app.db,
		Profiles:    userservice.NewClient(app.cfg.UserServiceURL, app.cfg.UserServiceTimeout),
		Alerts:      app.alerts,
		MaxAttempts: app.cfg.ProfileMaxAttempts,
	}

	app.authService = &service.AuthService{
		Store:       app.db,
		Codec:       app.codec,
		ProfileSync: app.profileSync,
		Lockout: service.LockoutPolicy{
			Threshold: app.cfg.LockoutThreshold,
			Duration:  app.cfg.LockoutDuration,
		},
		RotateRefreshTokens: app.cfg.RotateRefreshTokens,
	}

	app.passwordReset = &service.PasswordResetService{
		Store:    app.db,
		Notifier: app.notifier,
		Alerts:   app.alerts,
		TokenTTL: app.cfg.ResetTokenTTL,
	}

	app.bootstrapService = &service.BootstrapService{ProfileSync: app.profileSync}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.passwordReset,
		app.profileSync,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// limiters returns the rate limiter backend. Redis is shared between
// replicas; without it every instance counts on its own.
func (app *Application) limiters(ctx context.Context) httpx.LimiterFactory {
	if app.cfg.RedisAddr == "" {
		return httpx.MemoryLimiters()
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := app.redis.Ping(pingCtx).Err(); err != nil {
		// Limiter errors fail open, so keep going and let Redis come back.
		app.logger.Warn("redis unreachable, rate limits fail open until it recovers",
			"addr", app.cfg.RedisAddr, "error", err)
	} else {
		app.logger.Info("distributed rate limiting enabled", "addr", app.cfg.RedisAddr)
	}

	return httpx.RedisLimiters(app.redis, redisKeyPrefix)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP(ctx context.Context) {
	router := httpapi.NewRouter(
		app.codec,
		BuildVersion,
		app.db,
		app.logger,
		app.limiters(ctx),
		app.alerts,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.PasswordResetService = app.passwordReset
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) seedAdmin(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	created, err := app.bootstrapService.SeedAdmin(ctx, app.cfg.AdminEmail, app.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if created {
		app.logger.Info("admin credential seeded")
	}
	return nil
}
