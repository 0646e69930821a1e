package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the backend.
type Config struct {
	HTTPPort    string
	TokenSecret []byte
	Database    DatabaseConfig
	Redis       RedisConfig
	AI          AIConfig
	LogSink     LogSinkConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AIConfig holds settings for the AI proxy and its upstream providers.
type AIConfig struct {
	GeminiAPIKey  string
	ClaudeAPIKey  string
	GeminiBaseURL string
	ClaudeBaseURL string
	DefaultModel  string

	// RequestTimeout bounds each outbound provider call. It must stay
	// strictly below the inbound request timeout of whatever sits in front
	// of this service (load balancer, API gateway), otherwise callers see
	// a platform-level timeout instead of our 504. The HTTP server's write
	// timeout is derived from this value for that reason.
	RequestTimeout time.Duration

	// DailyRequestLimit is the per-user daily request ceiling. Deployments
	// are known to run with 100 and with 1000.
	DailyRequestLimit int
}

// LogSinkConfig holds configuration for the S3-based proxy request log sink
type LogSinkConfig struct {
	Enabled       bool
	BufferSize    int
	FlushSize     int
	FlushInterval time.Duration
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	PodName       string
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:    getEnvString("HTTP_PORT", "8080"),
		TokenSecret: []byte(getEnvString("TOKEN_SECRET", "default-secret-key")),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		AI: AIConfig{
			GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
			ClaudeAPIKey:      os.Getenv("CLAUDE_API_KEY"),
			GeminiBaseURL:     getEnvString("GEMINI_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			ClaudeBaseURL:     getEnvString("CLAUDE_API_BASE_URL", "https://api.anthropic.com"),
			DefaultModel:      getEnvString("AI_DEFAULT_MODEL", "gemini-2.5-pro"),
			RequestTimeout:    getEnvDuration("AI_REQUEST_TIMEOUT", 80*time.Second),
			DailyRequestLimit: getEnvInt("AI_DAILY_REQUEST_LIMIT", 1000),
		},
		LogSink: LogSinkConfig{
			Enabled:       getEnvString("LOG_SINK_ENABLED", "false") == "true",
			BufferSize:    getEnvInt("LOG_SINK_BUFFER_SIZE", 10000),
			FlushSize:     getEnvInt("LOG_SINK_FLUSH_SIZE", 1000),
			FlushInterval: getEnvDuration("LOG_SINK_FLUSH_INTERVAL", 5*time.Minute),
			S3Bucket:      getEnvString("LOG_SINK_S3_BUCKET", ""),
			S3Region:      getEnvString("LOG_SINK_S3_REGION", "us-east-1"),
			S3Prefix:      getEnvString("LOG_SINK_S3_PREFIX", "logs/"),
			PodName:       getEnvString("POD_NAME", "backend-0"),
		},
	}

	return cfg, nil
}
