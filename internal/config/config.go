package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Debug        DebugConfig
	Seed         SeedConfig
	Notification NotificationConfig
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

// StoreConfig selects the account store backend.
type StoreConfig struct {
	Driver string
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
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int
}

// DebugConfig gates the diagnostic account listing.
type DebugConfig struct {
	Enabled      bool
	RequireAdmin bool
}

// SeedConfig describes the account provisioned at startup.
type SeedConfig struct {
	Enabled  bool
	ID       string
	Username string
	Password string
	Role     string
	Name     string
}

// NotificationConfig holds stub notification endpoints for lockout alerts.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenTTL, err := ParseExpiresIn(getEnv("ACCESS_EXPIRES_IN", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_EXPIRES_IN: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreMemory))
	switch driver {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "login-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("PORT", getEnv("APP_PORT", "3000")),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: driver,
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
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "login:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_ACCESS_SECRET"),
			AccessTokenTTL: tokenTTL,
			BcryptCost:     getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Debug: DebugConfig{
			Enabled:      getEnvAsBool("DEBUG_ENDPOINTS_ENABLED", false),
			RequireAdmin: getEnvAsBool("DEBUG_REQUIRE_ADMIN", false),
		},
		Seed: SeedConfig{
			Enabled:  getEnvAsBool("SEED_ENABLED", true),
			ID:       getEnv("SEED_ID", "u_001"),
			Username: getEnv("SEED_USERNAME", "admin@kitchen.com"),
			Password: getEnv("SEED_PASSWORD", "123456"),
			Role:     getEnv("SEED_ROLE", "admin"),
			Name:     getEnv("SEED_NAME", "Admin"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", ""),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if cfg.Store.Driver == StorePostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs in production mode.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ParseExpiresIn accepts plain seconds ("900"), Go durations ("15m", "1h30m")
// and whole days ("7d").
func ParseExpiresIn(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", val)
		}
		return time.Duration(secs) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(val, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count: %q", val)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", val)
	}
	return d, nil
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
