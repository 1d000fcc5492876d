package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// minSigningKeyLength mirrors auth.MinSigningKeyLength; config stays free of
// the auth package so it can be loaded first.
const minSigningKeyLength = 32

// ErrMissingSigningKey is returned when AUTH_SIGNING_KEY is not set.
var ErrMissingSigningKey = errors.New("AUTH_SIGNING_KEY is required")

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
	Service     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	SigningKey               string
	AccessTokenTTLMinutes    int
	BcryptCost               int
	MaxFailedLogins          int
	LockoutWindowMinutes     int
	BootstrapAdminIdentifier string
	BootstrapAdminSecret     string
}

// Load reads configuration from environment variables, applying defaults where possible.
// A missing signing key is fatal: there is no built-in default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	appName := getEnv("APP_NAME", "workspace-auth")
	appEnv := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: appEnv == "development",
			Service:     appName,
		},
		Auth: AuthConfig{
			SigningKey:               os.Getenv("AUTH_SIGNING_KEY"),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 30),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MaxFailedLogins:          getEnvAsInt("AUTH_MAX_FAILED_LOGINS", 5),
			LockoutWindowMinutes:     getEnvAsInt("AUTH_LOCKOUT_WINDOW_MINUTES", 15),
			BootstrapAdminIdentifier: os.Getenv("AUTH_BOOTSTRAP_ADMIN_IDENTIFIER"),
			BootstrapAdminSecret:     os.Getenv("AUTH_BOOTSTRAP_ADMIN_SECRET"),
		},
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects auth settings the service cannot start with.
func (a AuthConfig) Validate() error {
	if a.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if len(a.SigningKey) < minSigningKeyLength {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least %d bytes", minSigningKeyLength)
	}
	if a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if a.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive")
	}
	if (a.BootstrapAdminIdentifier == "") != (a.BootstrapAdminSecret == "") {
		return fmt.Errorf("AUTH_BOOTSTRAP_ADMIN_IDENTIFIER and AUTH_BOOTSTRAP_ADMIN_SECRET must be set together")
	}
	return nil
}

// AccessTokenTTL returns the default token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// LockoutWindow returns the failed-login counting window.
func (a AuthConfig) LockoutWindow() time.Duration {
	return time.Duration(a.LockoutWindowMinutes) * time.Minute
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
