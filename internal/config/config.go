package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Store     StoreConfig
	Session   SessionConfig
	Pricing   PricingConfig
	Notify    NotifyConfig
	RateLimit RateLimitConfig
	LogLevel  string
	LogFormat string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type AuthConfig struct {
	APIKeys []string // Valid API keys for authentication
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	LockTimeout time.Duration
	AutoMigrate bool
}

type SessionConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal
	ShippingRate          decimal.Decimal
	TaxRate               decimal.Decimal
}

type NotifyConfig struct {
	TopicARN string
	Timeout  time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pricing, err := loadPricing()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest"}),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
			DatabaseURL: getEnv("DATABASE_URL", postgresDSNFromParts()),
			LockTimeout: time.Duration(getEnvAsInt("DB_LOCK_TIMEOUT_MS", 2000)) * time.Millisecond,
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Session: SessionConfig{
			Driver:        strings.ToLower(getEnv("SESSION_DRIVER", DriverMemory)),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 168)) * time.Hour,
		},
		Pricing: pricing,
		Notify: NotifyConfig{
			TopicARN: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
			Timeout:  time.Duration(getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadPricing() (PricingConfig, error) {
	var p PricingConfig
	var err error
	if p.FreeShippingThreshold, err = getEnvAsDecimal("FREE_SHIPPING_THRESHOLD", "200.00"); err != nil {
		return p, err
	}
	if p.ShippingRate, err = getEnvAsDecimal("SHIPPING_RATE", "15.00"); err != nil {
		return p, err
	}
	if p.TaxRate, err = getEnvAsDecimal("TAX_RATE", "0"); err != nil {
		return p, err
	}
	return p, nil
}

// postgresDSNFromParts builds a URL from the POSTGRES_* variables, or
// returns "" when POSTGRES_USER is unset.
func postgresDSNFromParts() string {
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, os.Getenv("POSTGRES_PASSWORD")),
		Host:   getEnv("POSTGRES_HOST", "localhost") + ":" + getEnv("POSTGRES_PORT", "5432"),
		Path:   "/" + getEnv("POSTGRES_DB", "storefront"),
	}
	q := u.Query()
	q.Set("sslmode", getEnv("POSTGRES_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL or POSTGRES_USER is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be postgres or memory)", c.Store.Driver)
	}

	switch c.Session.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis session store")
		}
	default:
		return fmt.Errorf("invalid session driver: %s (must be redis or memory)", c.Session.Driver)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}

	if c.Pricing.FreeShippingThreshold.IsNegative() || c.Pricing.ShippingRate.IsNegative() || c.Pricing.TaxRate.IsNegative() {
		return fmt.Errorf("pricing values must not be negative")
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit must allow at least one request")
	}

	return nil
}

// Helper functions for reading environment variables

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
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDecimal parses money values exactly. Unlike the other helpers a
// malformed value is an error.
func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a decimal", key, valueStr)
	}
	return value, nil
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
