package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Store    string
	Mongo    MongoConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	OAuth    OAuthConfig
	Sentry   SentryConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

// DatabaseConfig is the Postgres audit log. An empty URL disables it.
type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	// MigrationsPath overrides the embedded migrations with a directory.
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	Issuer         string
	IdempotencyTTL time.Duration
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenURL     string
	UserInfoURL  string
}

type SentryConfig struct {
	DSN         string
	Environment string
	SampleRate  float64
}

type WorkerConfig struct {
	Concurrency       int
	RosterConcurrency int
	// OwnerRepairCron is the asynq cron expression for the ownerless-school scan.
	OwnerRepairCron string
	// MetricsAddr serves /metrics from the worker process; empty disables it.
	MetricsAddr string
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, fills variables that are not already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rateLimit, err := getEnvInt("RATE_LIMIT", 120)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}

	rateWindow, err := getEnvDuration("RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_WINDOW: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenTTL, err := getEnvDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	idemTTL, err := getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	sampleRate, err := getEnvFloat("SENTRY_SAMPLE_RATE", 1.0)
	if err != nil {
		return nil, fmt.Errorf("invalid SENTRY_SAMPLE_RATE: %w", err)
	}

	workerConcurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	rosterConcurrency, err := getEnvInt("ROSTER_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid ROSTER_CONCURRENCY: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			RateLimit:      rateLimit,
			RateWindow:     rateWindow,
		},
		Store: getEnv("STORE_BACKEND", StoreMongo),
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "schoolhub"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			TokenTTL:       tokenTTL,
			Issuer:         getEnv("JWT_ISSUER", "schoolhub"),
			IdempotencyTTL: idemTTL,
		},
		OAuth: OAuthConfig{
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:3000/auth/callback"),
			TokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
			UserInfoURL:  getEnv("OAUTH_USERINFO_URL", ""),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: env,
			SampleRate:  sampleRate,
		},
		Worker: WorkerConfig{
			Concurrency:       workerConcurrency,
			RosterConcurrency: rosterConcurrency,
			OwnerRepairCron:   getEnv("OWNER_REPAIR_CRON", "@every 15m"),
			MetricsAddr:       getEnv("WORKER_METRICS_ADDR", ":9091"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch c.Store {
	case StoreMongo:
		if c.Mongo.URI == "" {
			missing = append(missing, "MONGODB_URI")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store)
	}
	if c.OAuth.ClientID != "" && (c.OAuth.TokenURL == "" || c.OAuth.UserInfoURL == "") {
		missing = append(missing, "OAUTH_TOKEN_URL", "OAUTH_USERINFO_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
