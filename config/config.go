package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Engine   EngineConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Admin    AdminConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// EngineConfig tunes the scoring and prediction engine. The radii and
// thresholds match how field crews actually triage reports, so change
// them with care.
type EngineConfig struct {
	DuplicateRadiusMeters float64
	DuplicateCandidates   int
	DuplicateThreshold    float64
	NearbyRadiusMeters    float64
	TrainingSampleLimit   int
	RetrainInterval       time.Duration
	EnrichmentConcurrency int64
	EnrichmentRateLimit   float64
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type AdminConfig struct {
	AdminSecret string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", ""),
			Database:   getEnv("MONGO_DATABASE", "civicpulse"),
			Collection: getEnv("MONGO_COLLECTION", "reports"),
		},
		Engine: EngineConfig{
			DuplicateRadiusMeters: getEnvFloat("ENGINE_DUPLICATE_RADIUS_METERS", 100),
			DuplicateCandidates:   getEnvInt("ENGINE_DUPLICATE_CANDIDATES", 10),
			DuplicateThreshold:    getEnvFloat("ENGINE_DUPLICATE_THRESHOLD", 0.7),
			NearbyRadiusMeters:    getEnvFloat("ENGINE_NEARBY_RADIUS_METERS", 500),
			TrainingSampleLimit:   getEnvInt("ENGINE_TRAINING_SAMPLE_LIMIT", 1000),
			RetrainInterval:       getEnvDuration("ENGINE_RETRAIN_INTERVAL", 1*time.Hour),
			EnrichmentConcurrency: int64(getEnvInt("ENGINE_ENRICHMENT_CONCURRENCY", 4)),
			EnrichmentRateLimit:   getEnvFloat("ENGINE_ENRICHMENT_RATE_LIMIT", 20.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Admin: AdminConfig{
			AdminSecret: getEnv("ADMIN_SECRET", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Engine.DuplicateRadiusMeters <= 0 {
		return fmt.Errorf("duplicate radius must be positive")
	}
	if c.Engine.DuplicateThreshold <= 0 || c.Engine.DuplicateThreshold >= 1 {
		return fmt.Errorf("duplicate threshold must be in (0, 1)")
	}
	if c.Engine.TrainingSampleLimit < 10 {
		return fmt.Errorf("training sample limit must be at least 10")
	}
	if c.Engine.EnrichmentConcurrency < 1 {
		return fmt.Errorf("enrichment concurrency must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
