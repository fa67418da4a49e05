package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Audit    AuditConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds the connection settings for the aggregate cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	// JWTSecret signs HS256 access tokens. Must be overridden in production.
	JWTSecret string
	// TokenTTL is the access-token lifetime.
	TokenTTL time.Duration
	// LoginRatePerMinute throttles login/register attempts per client IP.
	LoginRatePerMinute int
}

type CacheConfig struct {
	// StatsTTL is the time-to-live for case aggregate entries.
	StatsTTL time.Duration
	// ReferenceTTL is the time-to-live for disease/alert reference entries.
	ReferenceTTL time.Duration
}

type AuditConfig struct {
	// BufferSize is the capacity of the in-process audit queue. Entries past
	// capacity are dropped rather than blocking the request.
	BufferSize int
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "vigilancia"),
			Password: getEnv("DB_PASSWORD", "vigilancia"),
			Database: getEnv("DB_NAME", "vigilancia"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			TokenTTL:           getEnvDuration("JWT_TTL", 12*time.Hour),
			LoginRatePerMinute: getEnvInt("AUTH_RATE_PER_MINUTE", 10),
		},
		Cache: CacheConfig{
			StatsTTL:     getEnvDuration("CACHE_STATS_TTL", 5*time.Minute),
			ReferenceTTL: getEnvDuration("CACHE_REFERENCE_TTL", 10*time.Minute),
		},
		Audit: AuditConfig{
			BufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 1024),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
