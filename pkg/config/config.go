package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the engine.
// SSOT: 所有环境变量只在这里读取。
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Upstream market data
	Zhitu ZhituConfig

	// Exchange holiday schedule
	Exchange ExchangeConfig

	// Market session
	Market MarketConfig

	// Risk scanner
	Scan ScanConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ZhituConfig holds the Zhitu market-data API configuration.
type ZhituConfig struct {
	BaseURL string
	Token   string
	// RatePerMin is the upstream quota ceiling shared by all fetches.
	RatePerMin int
	Timeout    time.Duration
}

// ExchangeConfig holds the exchange trading-calendar page settings.
type ExchangeConfig struct {
	CalendarURL string
}

// MarketConfig holds session timing for the exchange.
type MarketConfig struct {
	Timezone     string
	Location     *time.Location
	GuardTimeout time.Duration // realtime snapshot fetch bound
}

// ScanConfig holds risk-scanner tuning.
type ScanConfig struct {
	Workers      int     // max in-flight fetches
	PacePerSec   float64 // inter-fetch pacing
	HistoryYears int     // profit history depth for pass 2
}

// Load reads configuration from environment variables.
// SSOT: 只有这个函数调用 os.Getenv()。
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8098"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Zhitu: ZhituConfig{
			BaseURL:    getEnv("ZHITU_BASE_URL", "https://api.zhituapi.com"),
			Token:      getEnv("ZHITU_TOKEN", ""),
			RatePerMin: getEnvAsInt("ZHITU_RATE_PER_MIN", 3000),
			Timeout:    getEnvAsDuration("ZHITU_TIMEOUT", "10s"),
		},

		Exchange: ExchangeConfig{
			CalendarURL: getEnv("EXCHANGE_CALENDAR_URL", ""),
		},

		Market: MarketConfig{
			Timezone:     getEnv("MARKET_TIMEZONE", "Asia/Shanghai"),
			GuardTimeout: getEnvAsDuration("GUARD_TIMEOUT", "5s"),
		},

		Scan: ScanConfig{
			Workers:      getEnvAsInt("SCAN_WORKERS", 10),
			PacePerSec:   getEnvAsFloat("SCAN_PACE_PER_SEC", 40),
			HistoryYears: getEnvAsInt("SCAN_HISTORY_YEARS", 3),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_TIMEZONE %q: %w", cfg.Market.Timezone, err)
	}
	cfg.Market.Location = loc

	return cfg, nil
}

// validate checks required configuration values.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be >= 1")
	}
	return nil
}

// loadEnvFile tries to load .env from the usual locations.
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}
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
