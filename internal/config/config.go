package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Revocation backends.
const (
	RevocationBackendMemory = "memory"
	RevocationBackendRedis  = "redis"
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
	LatencyThreshold      time.Duration
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
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
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	AccessTokenSecret      string
	RefreshTokenSecret     string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	BcryptCost             int
	RevocationBackend      string
	RevocationReapInterval time.Duration
	RateLimitPerMinute     int
}

// Load reads configuration from environment variables, applying defaults where possible.
// Token secrets, token TTLs and the latency threshold have no defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	var errs []error
	accessTTL, err := requireDuration("ACCESS_TOKEN_TTL")
	errs = append(errs, err)
	refreshTTL, err := requireDuration("REFRESH_TOKEN_TTL")
	errs = append(errs, err)
	latency, err := requireDuration("LATENCY_THRESHOLD")
	errs = append(errs, err)
	accessSecret, err := requireString("ACCESS_TOKEN_SECRET")
	errs = append(errs, err)
	refreshSecret, err := requireString("REFRESH_TOKEN_SECRET")
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "model-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			LatencyThreshold:      latency,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			AccessTokenSecret:      accessSecret,
			RefreshTokenSecret:     refreshSecret,
			AccessTokenTTL:         accessTTL,
			RefreshTokenTTL:        refreshTTL,
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 10),
			RevocationBackend:      getEnv("REVOCATION_BACKEND", RevocationBackendMemory),
			RevocationReapInterval: getEnvAsDuration("REVOCATION_REAP_INTERVAL", time.Minute),
			RateLimitPerMinute:     getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	a := c.Auth
	if a.AccessTokenSecret == "" || a.RefreshTokenSecret == "" {
		return errors.New("token secrets must be set")
	}
	if a.AccessTokenSecret == a.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if a.AccessTokenTTL <= 0 || a.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if a.AccessTokenTTL >= a.RefreshTokenTTL {
		return errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if c.App.LatencyThreshold <= 0 {
		return errors.New("LATENCY_THRESHOLD must be positive")
	}
	switch a.RevocationBackend {
	case RevocationBackendMemory, RevocationBackendRedis:
	default:
		return fmt.Errorf("unknown REVOCATION_BACKEND %q", a.RevocationBackend)
	}
	return nil
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

func requireString(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return val, nil
}

func requireDuration(key string) (time.Duration, error) {
	val, err := requireString(key)
	if err != nil {
		return 0, err
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
