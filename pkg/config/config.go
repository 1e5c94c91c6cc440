package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Store selects the instrument storage backend (postgres, memory)
	Store string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Scoring
	Scoring ScoringConfig

	// Client is used by the remote sweep driver
	Client ClientConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ScoringConfig holds batch recomputation settings
type ScoringConfig struct {
	BatchSize     int    // default page size for one recompute call
	Preset        string // default parameter preset
	SweepSchedule string // cron expression (with seconds)
	SweepEnabled  bool

	// RecomputeRateLimit caps recompute calls per minute (0 = unlimited)
	RecomputeRateLimit int

	// LeaseTTL bounds how long one recompute call may hold the redis lease
	LeaseTTL time.Duration

	// TopCacheTTL is the lifetime of the cached ranking
	TopCacheTTL time.Duration
}

// ClientConfig holds settings for calling a running API server
type ClientConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return LoadWith(nil)
}

// LoadWith reads configuration and applies override (e.g. CLI flags) before validation
func LoadWith(override func(*Config)) (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port:  getEnv("PORT", "8080"),
		Env:   getEnv("ENV", "development"),
		Store: getEnv("STORE", StorePostgres),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Scoring
		Scoring: ScoringConfig{
			BatchSize:          getEnvAsInt("SCORE_BATCH_SIZE", 100),
			Preset:             getEnv("SCORE_PRESET", "default"),
			SweepSchedule:      getEnv("SCORE_SWEEP_SCHEDULE", "0 */30 * * * *"),
			SweepEnabled:       getEnvAsBool("SCORE_SWEEP_ENABLED", true),
			RecomputeRateLimit: getEnvAsInt("SCORE_RECOMPUTE_RATE_LIMIT", 60),
			LeaseTTL:           getEnvAsDuration("SCORE_LEASE_TTL", "2m"),
			TopCacheTTL:        getEnvAsDuration("SCORE_TOP_CACHE_TTL", "5m"),
		},

		Client: ClientConfig{
			BaseURL:           getEnv("API_BASE_URL", "http://localhost:8080"),
			RequestsPerSecond: getEnvAsFloat("CLIENT_RPS", 2),
			Timeout:           getEnvAsDuration("CLIENT_TIMEOUT", "60s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if override != nil {
		override(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be one of: %s, %s", StorePostgres, StoreMemory)
	}

	// Database URL is required unless running on the in-memory store
	if c.Store == StorePostgres && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scoring.BatchSize < 1 || c.Scoring.BatchSize > 1000 {
		return fmt.Errorf("SCORE_BATCH_SIZE must be within [1, 1000], got %d", c.Scoring.BatchSize)
	}

	switch c.Scoring.Preset {
	case "default", "aggressive", "recommended":
	default:
		return fmt.Errorf("SCORE_PRESET must be one of: default, aggressive, recommended")
	}

	return nil
}

// RedisAddr returns host:port of the redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
