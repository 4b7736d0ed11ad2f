package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/authgate/jwt-auth/internal/auth"
)

// Supported values for AUTH_USER_STORE.
const (
	UserStorePostgres = "postgres"
	UserStoreRedis    = "redis"
)

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

// RedisConfig holds Redis connection values. Addr may list several
// comma-separated nodes for cluster or sentinel deployments.
type RedisConfig struct {
	Addr       string
	MasterName string
	Password   string
	DB         int
	KeyPrefix  string
}

// Addrs splits Addr into individual node addresses.
func (r RedisConfig) Addrs() []string {
	var out []string
	for _, addr := range strings.Split(r.Addr, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	Enabled          bool
	JWTSecret        string
	ExpirationMillis int64
	BcryptCost       int
	UserStore        string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	expiration, err := strconv.ParseInt(getEnv("AUTH_JWT_EXPIRATION_MS", "86400000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_JWT_EXPIRATION_MS: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "jwt-auth"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			MasterName: os.Getenv("REDIS_MASTER_NAME"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
			KeyPrefix:  getEnv("REDIS_KEY_PREFIX", "jwtauth:"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			Enabled:          getEnvAsBool("AUTH_ENABLED", true),
			JWTSecret:        os.Getenv("AUTH_JWT_SECRET"),
			ExpirationMillis: expiration,
			BcryptCost:       getEnvAsInt("AUTH_BCRYPT_COST", 12),
			UserStore:        getEnv("AUTH_USER_STORE", UserStorePostgres),
		},
	}

	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a AuthConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if a.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required when AUTH_ENABLED is true")
	}
	if a.ExpirationMillis <= 0 {
		return fmt.Errorf("AUTH_JWT_EXPIRATION_MS must be positive, got %d", a.ExpirationMillis)
	}
	switch a.UserStore {
	case UserStorePostgres, UserStoreRedis:
	default:
		return fmt.Errorf("unknown AUTH_USER_STORE %q", a.UserStore)
	}
	return nil
}

// TokenConfig returns the values consumed by the token engine.
func (a AuthConfig) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{Secret: a.JWTSecret, ExpirationMillis: a.ExpirationMillis}
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
