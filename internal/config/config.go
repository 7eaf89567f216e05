package config

import (
	"errors"
	"fmt"
	"log"
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

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Document store
	StoreDriver       string        `json:"store_driver"`
	StoreTimeout      time.Duration `json:"store_timeout"`
	MongoURI          string        `json:"mongo_uri"`
	MongoDB           string        `json:"mongo_db"`
	MongoTransactions bool          `json:"mongo_transactions"`

	// Redis configuration. An empty URL selects the in-process cache.
	RedisURL      string        `json:"redis_url"`
	RedisPrefix   string        `json:"redis_prefix"`
	TopSourcesTTL time.Duration `json:"top_sources_ttl"`
	FeedCacheTTL  time.Duration `json:"feed_cache_ttl"`

	// Security
	JWTSecret string `json:"-"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// FromEnv reads the configuration without loading .env or validating.
func FromEnv() *Config {
	return &Config{
		// Server configuration
		Port:            getEnv("PORT", "5000"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Document store
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		StoreTimeout:      getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "newstrust"),
		MongoTransactions: getEnvAsBool("MONGO_TRANSACTIONS", false),

		// Redis configuration
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPrefix:   getEnv("REDIS_PREFIX", "newstrust:"),
		TopSourcesTTL: getEnvAsDuration("TOP_SOURCES_TTL", 5*time.Minute),
		FeedCacheTTL:  getEnvAsDuration("FEED_CACHE_TTL", 720*time.Hour), // 30 days

		// Security
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
		if c.MongoDB == "" {
			errs = append(errs, errors.New("MONGO_DB is required when STORE_DRIVER=mongo"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.JWTSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
