package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds the application configuration
type Config struct {
	Environment             string         `yaml:"environment"`
	ServerPort              int            `yaml:"serverPort"`
	LogLevel                string         `yaml:"logLevel"`
	StoreBackend            string         `yaml:"storeBackend"`
	RedisURL                string         `yaml:"redisURL"`
	MongoURI                string         `yaml:"mongoURI"`
	MongoDatabase           string         `yaml:"mongoDatabase"`
	Database                DatabaseConfig `yaml:"database"`
	UpdateConcurrency       int            `yaml:"updateConcurrency"`
	ListCacheTTLSeconds     int            `yaml:"listCacheTTLSeconds"`
	RateLimitPerMinute      int            `yaml:"rateLimitPerMinute"`
	BreakerFailureThreshold int            `yaml:"breakerFailureThreshold"`
	BreakerTimeoutSeconds   int            `yaml:"breakerTimeoutSeconds"`
	CORSAllowedOrigins      []string       `yaml:"corsAllowedOrigins"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
}

// Default returns the development configuration
func Default() *Config {
	return &Config{
		Environment:             "development",
		ServerPort:              8080,
		LogLevel:                "info",
		StoreBackend:            BackendMemory,
		RedisURL:                "redis://localhost:6379",
		MongoURI:                "mongodb://localhost:27017",
		MongoDatabase:           "employeedir",
		UpdateConcurrency:       8,
		ListCacheTTLSeconds:     0,
		RateLimitPerMinute:      300,
		BreakerFailureThreshold: 5,
		BreakerTimeoutSeconds:   30,
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "employeedir",
			Name:    "employeedir",
			SSLMode: "disable",
		},
		CORSAllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
	}
}

// Load starts from Default, applies the YAML file named by EMPLOYEEDIR_CONFIG if set,
// then lets environment variables override individual values.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("EMPLOYEEDIR_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", c.StoreBackend))
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.Database.Host = getEnv("DATABASE_HOST", c.Database.Host)
	c.Database.User = getEnv("DATABASE_USER", c.Database.User)
	c.Database.Password = getEnv("DATABASE_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DATABASE_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DATABASE_SSLMODE", c.Database.SSLMode)
	c.CORSAllowedOrigins = parseCSVEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	ints := []struct {
		key string
		dst *int
	}{
		{"SERVER_PORT", &c.ServerPort},
		{"DATABASE_PORT", &c.Database.Port},
		{"UPDATE_CONCURRENCY", &c.UpdateConcurrency},
		{"LIST_CACHE_TTL_SECONDS", &c.ListCacheTTLSeconds},
		{"RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute},
		{"BREAKER_FAILURE_THRESHOLD", &c.BreakerFailureThreshold},
		{"BREAKER_TIMEOUT_SECONDS", &c.BreakerTimeoutSeconds},
	}
	for _, i := range ints {
		v, err := strconv.Atoi(getEnv(i.key, strconv.Itoa(*i.dst)))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = v
	}
	return nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendMongo:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	if c.UpdateConcurrency < 1 {
		return fmt.Errorf("UPDATE_CONCURRENCY must be at least 1")
	}
	if c.ListCacheTTLSeconds < 0 {
		return fmt.Errorf("LIST_CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
