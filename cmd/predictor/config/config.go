// Package config provides configuration parsing and management for the predictor.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for the predictor including:
//   - Listen addresses (HTTP, gRPC health)
//   - Logging configuration (level, format)
//   - API key and supported API versions
//   - Prediction cache backend (none, memory, redis)
//   - Model hyperparameters and the price floor
//   - TLS configuration (cert, key, CA files)
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/HatiCode/motoblu/pkg/models"
	"github.com/HatiCode/motoblu/pkg/tls"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all predictor configuration.
type Config struct {
	Listen      string
	GRPCListen  string
	LogFormat   string
	LogLevel    string
	APIKey      string
	APIVersions []string

	Cache           string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	TLS tls.Config

	Trees        int
	Leaves       int
	MinLeaf      int
	LearningRate float64
	PriceFloor   float64
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}
	defaults := models.DefaultOptions()

	var versions string

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":5051"), "HTTP listen address")
	flag.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", ":50051"), "gRPC health listen address (empty disables)")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.APIKey, "api-key", getEnv("API_KEY", ""), "Required x-api-key value (empty disables the check)")
	flag.StringVar(&versions, "api-versions", getEnv("API_VERSIONS", "1.0"), "Comma-separated supported API versions, default first")

	flag.StringVar(&cfg.Cache, "cache", getEnv("CACHE", CacheMemory), "Prediction cache: none, memory or redis")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", getEnvDuration("CACHE_TTL", 10*time.Minute), "Prediction cache TTL")
	flag.IntVar(&cfg.CacheMaxEntries, "cache-max-entries", getEnvInt("CACHE_MAX_ENTRIES", 10000), "Maximum entries held by the memory cache")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP and gRPC servers")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification (optional)")

	flag.IntVar(&cfg.Trees, "trees", getEnvInt("TREES", defaults.NumTrees), "Maximum number of boosted trees")
	flag.IntVar(&cfg.Leaves, "leaves", getEnvInt("LEAVES", defaults.NumLeaves), "Maximum leaves per tree")
	flag.IntVar(&cfg.MinLeaf, "min-leaf", getEnvInt("MIN_LEAF", defaults.MinExamplesPerLeaf), "Minimum examples per leaf")
	flag.Float64Var(&cfg.LearningRate, "learning-rate", getEnvFloat("LEARNING_RATE", defaults.LearningRate), "Boosting learning rate")
	flag.Float64Var(&cfg.PriceFloor, "price-floor", getEnvFloat("PRICE_FLOOR", models.DefaultPriceFloor), "Minimum predicted price, never below the default")

	flag.Parse()

	cfg.APIVersions = splitList(versions)

	return cfg
}

// ModelOptions returns the configured hyperparameters.
func (c *Config) ModelOptions() models.Options {
	return models.Options{
		NumTrees:           c.Trees,
		NumLeaves:          c.Leaves,
		MinExamplesPerLeaf: c.MinLeaf,
		LearningRate:       c.LearningRate,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address cannot be empty")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", c.LogLevel)
	}

	if len(c.APIVersions) == 0 {
		return errors.New("at least one API version is required")
	}

	switch c.Cache {
	case CacheNone:
	case CacheMemory:
		if c.CacheMaxEntries <= 0 {
			return fmt.Errorf("cache max entries must be > 0, got %d", c.CacheMaxEntries)
		}
	case CacheRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address required when cache=redis")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis db must be >= 0, got %d", c.RedisDB)
		}
	default:
		return fmt.Errorf("invalid cache %q (must be none, memory or redis)", c.Cache)
	}

	if c.Cache != CacheNone && c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be > 0, got %v", c.CacheTTL)
	}

	if err := c.ModelOptions().Validate(); err != nil {
		return fmt.Errorf("model options: %w", err)
	}

	if math.IsNaN(c.PriceFloor) || math.IsInf(c.PriceFloor, 0) || c.PriceFloor < models.DefaultPriceFloor {
		return fmt.Errorf("price floor must be a finite value >= %v, got %v", models.DefaultPriceFloor, c.PriceFloor)
	}

	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
