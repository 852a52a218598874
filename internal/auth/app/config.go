package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saifdinehd/shopauth/pkg/jwtx"
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	JWTSecret            string        // Required: base64 HMAC key shared with the other services
	Issuer               string        // Optional: iss claim (default: shopauth)
	AccessTTL            time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL           time.Duration // Optional: refresh token lifetime (default: 7d)
	RotateRefreshTokens  bool          // Optional: issue a new refresh token on every refresh (default: false)
	LockoutThreshold     int           // Optional: failed logins before lockout (default: 5)
	LockoutDuration      time.Duration // Optional: lockout length (default: 30m)
	ResetTokenTTL        time.Duration // Optional: password reset token lifetime (default: 1h)
	PepperFile           string        // Optional: path to the password pepper (default: ./pepper)
	DatabaseDriver       string        // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile         string        // Optional: SQLite file (default: ./auth.db)
	DatabaseURL          string        // Required for postgres
	UserServiceURL       string        // Required: base URL of the user service
	UserServiceTimeout   time.Duration // Optional: per-call timeout (default: 5s)
	ProfileMaxAttempts   int           // Optional: profile deliveries before compensation (default: 5)
	NotifyDriver         string        // Optional: log, smtp or amqp (default: log)
	FrontendURL          string        // Optional: base of reset links (default: http://localhost:4200)
	MailFrom             string        // Optional: sender address (default: noreply@shop.local)
	SMTPHost             string        // Required for smtp
	SMTPPort             int           // Optional: (default: 587)
	SMTPUsername         string        // Optional
	SMTPPassword         string        // Optional
	RabbitMQURL          string        // Required for amqp
	RedisAddr            string        // Optional: enables distributed rate limiting
	RedisPassword        string        // Optional
	RedisDB              int           // Optional: (default: 0)
	SentryDSN            string        // Optional: enables Sentry alerts
	AdminEmail           string        // Optional: seeds an ADMIN credential when set with AdminPassword
	AdminPassword        string        // Optional
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8081)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1m)
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	NotifyLog  = "log"
	NotifySMTP = "smtp"
	NotifyAMQP = "amqp"
)

func LoadConfig() Config {
	return Config{
		JWTSecret:            os.Getenv("AUTH_JWT_SECRET"),
		Issuer:               getEnvOrDefault("AUTH_ISSUER", "shopauth"),
		AccessTTL:            getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:           getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		RotateRefreshTokens:  getEnvBoolOrDefault("AUTH_ROTATE_REFRESH_TOKENS", false),
		LockoutThreshold:     getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", 5),
		LockoutDuration:      getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", 30*time.Minute),
		ResetTokenTTL:        getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", time.Hour),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		DatabaseDriver:       strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		UserServiceURL:       getEnvOrDefault("USER_SERVICE_URL", "http://localhost:8082"),
		UserServiceTimeout:   getEnvDurationOrDefault("USER_SERVICE_TIMEOUT", 5*time.Second),
		ProfileMaxAttempts:   getEnvIntOrDefault("PROFILE_MAX_ATTEMPTS", 5),
		NotifyDriver:         strings.ToLower(getEnvOrDefault("NOTIFY_DRIVER", NotifyLog)),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:4200"),
		MailFrom:             getEnvOrDefault("MAIL_FROM", "noreply@shop.local"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:         os.Getenv("SMTP_USERNAME"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		RabbitMQURL:          os.Getenv("RABBITMQ_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("REDIS_DB", 0),
		SentryDSN:            os.Getenv("SENTRY_DSN"),
		AdminEmail:           os.Getenv("ADMIN_EMAIL"),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8081),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),
	}
}

// Validate reports every problem with cfg at once.
func (cfg Config) Validate() error {
	var errs []error

	secret, err := jwtx.DecodeSecret(cfg.JWTSecret)
	switch {
	case cfg.JWTSecret == "":
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET: %w", err))
	case len(secret) < jwtx.MinSecretBytes:
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must decode to at least %d bytes", jwtx.MinSecretBytes))
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver))
	}

	switch cfg.NotifyDriver {
	case NotifyLog:
	case NotifySMTP:
		if cfg.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp notifier"))
		}
	case NotifyAMQP:
		if cfg.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for the amqp notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_DRIVER %q", cfg.NotifyDriver))
	}

	if cfg.UserServiceURL == "" {
		errs = append(errs, errors.New("USER_SERVICE_URL is required"))
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if cfg.LockoutThreshold < 1 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_THRESHOLD must be at least 1"))
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
