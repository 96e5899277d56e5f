package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/weekly"
)

// ErrInvalid wraps every fatal configuration problem found by Validate.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	MongoURI       string
	MongoDatabase  string
	PostgresURI    string
	RedisURI       string
	Port           string
	OperatorPort   string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Environment    string   // ENV: production, development, etc.
	LogLevel       string

	OpenAIBaseURL string
	OpenAIToken   string
	OpenAIModel   string
	AdviceTimeout time.Duration // per generation call

	AdviceWeekday      string
	AdviceTime         string // HH:MM, UTC
	AdviceJobTimeout   time.Duration
	AdviceWorkers      int
	AdviceUserPageSize int
	AdviceLockTTL      time.Duration

	OperatorTokenHash string // argon2id, pkg/utils format
	SentryDSN         string

	// Boundary is parsed from AdviceWeekday and AdviceTime by Validate.
	Boundary weekly.Boundary
}

func Load() *Config {
	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	return &Config{
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/serenify")),
		MongoDatabase:  getEnv("MONGO_DATABASE", "serenify"),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/serenify?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:           getEnv("PORT", "8080"),
		OperatorPort:   getEnv("OPERATOR_PORT", "8081"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,
		Environment:    strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIToken:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", ""),
		AdviceTimeout: getDuration("ADVICE_GENERATION_TIMEOUT", 45*time.Second),

		AdviceWeekday:      getEnv("ADVICE_WEEKDAY", "sunday"),
		AdviceTime:         getEnv("ADVICE_TIME", "00:00"),
		AdviceJobTimeout:   getDuration("ADVICE_JOB_TIMEOUT", 60*time.Second),
		AdviceWorkers:      getInt("ADVICE_WORKERS", 4),
		AdviceUserPageSize: getInt("ADVICE_USER_PAGE_SIZE", 500),
		AdviceLockTTL:      getDuration("ADVICE_LOCK_TTL", 6*time.Hour),

		OperatorTokenHash: getEnv("OPERATOR_TOKEN_HASH", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
	}
}

// Validate checks the settings the scheduler cannot run without and fills
// in Boundary.
func (c *Config) Validate() error {
	b, err := weekly.ParseBoundary(c.AdviceWeekday, c.AdviceTime)
	if err != nil {
		return fmt.Errorf("%w: ADVICE_WEEKDAY/ADVICE_TIME: %v", ErrInvalid, err)
	}
	c.Boundary = b

	switch {
	case c.AdviceWorkers < 1:
		return fmt.Errorf("%w: ADVICE_WORKERS must be at least 1, got %d", ErrInvalid, c.AdviceWorkers)
	case c.AdviceUserPageSize < 1:
		return fmt.Errorf("%w: ADVICE_USER_PAGE_SIZE must be at least 1, got %d", ErrInvalid, c.AdviceUserPageSize)
	case c.AdviceJobTimeout <= 0:
		return fmt.Errorf("%w: ADVICE_JOB_TIMEOUT must be positive", ErrInvalid)
	case c.AdviceTimeout <= 0:
		return fmt.Errorf("%w: ADVICE_GENERATION_TIMEOUT must be positive", ErrInvalid)
	case c.AdviceLockTTL <= 0:
		return fmt.Errorf("%w: ADVICE_LOCK_TTL must be positive", ErrInvalid)
	case c.AdviceTimeout > c.AdviceJobTimeout:
		return fmt.Errorf("%w: ADVICE_GENERATION_TIMEOUT (%s) exceeds ADVICE_JOB_TIMEOUT (%s)", ErrInvalid, c.AdviceTimeout, c.AdviceJobTimeout)
	}
	return nil
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt and getDuration keep the default on unparsable input; Validate
// catches values that parse but make no sense.
func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return d
	}
	return defaultValue
}
