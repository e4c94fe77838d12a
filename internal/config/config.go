package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	SMTP     SMTPConfig
	Worker   WorkerConfig
	Nurture  NurtureConfig
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
	Level string
}

// SMTPConfig holds outbound mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
}

// WorkerConfig tunes the delivery worker.
type WorkerConfig struct {
	Schedule           string
	BatchSize          int
	Concurrency        int
	SendTimeoutSeconds int
	MaxAttempts        int
	RetryBackoffSec    int
}

// NurtureConfig holds engine-level settings for the nurture sequences.
type NurtureConfig struct {
	UnsubscribeBaseURL string
	UnsubscribeSecret  string
	UnsubscribeTTLDays int
	ComplianceDeadline string // YYYY-MM-DD, used for the {daysUntilDeadline} variable
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "lead-nurture-service"),
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
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "hello@a11ywatch.example"),
			ReplyTo:  getEnv("SMTP_REPLY_TO", "support@a11ywatch.example"),
		},
		Worker: WorkerConfig{
			Schedule:           getEnv("WORKER_SCHEDULE", "@every 2m"),
			BatchSize:          getEnvAsInt("WORKER_BATCH_SIZE", 50),
			Concurrency:        getEnvAsInt("WORKER_CONCURRENCY", 4),
			SendTimeoutSeconds: getEnvAsInt("WORKER_SEND_TIMEOUT_SECONDS", 20),
			MaxAttempts:        getEnvAsInt("WORKER_MAX_ATTEMPTS", 3),
			RetryBackoffSec:    getEnvAsInt("WORKER_RETRY_BACKOFF_SECONDS", 900),
		},
		Nurture: NurtureConfig{
			UnsubscribeBaseURL: getEnv("NURTURE_UNSUBSCRIBE_BASE_URL", "http://localhost:8080/unsubscribe"),
			UnsubscribeSecret:  getEnv("NURTURE_UNSUBSCRIBE_SECRET", "dev-secret"),
			UnsubscribeTTLDays: getEnvAsInt("NURTURE_UNSUBSCRIBE_TTL_DAYS", 90),
			ComplianceDeadline: getEnv("NURTURE_COMPLIANCE_DEADLINE", "2025-06-28"),
		},
	}

	return cfg, nil
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

// SendTimeout bounds a single transport dispatch.
func (w WorkerConfig) SendTimeout() time.Duration {
	if w.SendTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(w.SendTimeoutSeconds) * time.Second
}

// RetryBackoff is the base delay before a transient-failed send re-enters the queue.
func (w WorkerConfig) RetryBackoff() time.Duration {
	if w.RetryBackoffSec <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(w.RetryBackoffSec) * time.Second
}

// DeadlineDate parses the compliance deadline used by template variables.
func (n NurtureConfig) DeadlineDate() (time.Time, error) {
	return time.Parse("2006-01-02", n.ComplianceDeadline)
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
