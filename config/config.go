package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Capture   CaptureConfig
	Retention RetentionConfig
	Redis     RedisConfig
	S3        S3Config
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds the secret shared with the storefront, which mints both
// shopper and admin tokens.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CaptureConfig struct {
	NonceSecret   string
	NonceTTL      time.Duration
	HookToken     string
	SessionCookie string
	SessionMaxAge time.Duration
	CookieSecure  bool
}

type RetentionConfig struct {
	Days          int
	Schedule      string
	LockTTL       time.Duration
	ArchiveBucket string
	ArchivePrefix string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "cart_recovery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "100"), 100),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Capture: CaptureConfig{
			NonceSecret:   getEnv("CAPTURE_NONCE_SECRET", "change-me-nonce-secret"),
			NonceTTL:      parseDuration(getEnv("CAPTURE_NONCE_TTL", "12h"), 12*time.Hour),
			HookToken:     getEnv("CAPTURE_HOOK_TOKEN", ""),
			SessionCookie: getEnv("CAPTURE_SESSION_COOKIE", "cart_session"),
			SessionMaxAge: parseDuration(getEnv("CAPTURE_SESSION_MAX_AGE", "48h"), 48*time.Hour),
			CookieSecure:  parseBool(getEnv("CAPTURE_COOKIE_SECURE", "false")),
		},
		Retention: RetentionConfig{
			Days:          parseInt(getEnv("RETENTION_DAYS", "180"), 180),
			Schedule:      getEnv("RETENTION_SCHEDULE", "0 3 * * *"),
			LockTTL:       parseDuration(getEnv("RETENTION_LOCK_TTL", "1h"), time.Hour),
			ArchiveBucket: getEnv("RETENTION_ARCHIVE_BUCKET", ""),
			ArchivePrefix: getEnv("RETENTION_ARCHIVE_PREFIX", "abandoned-carts"),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
	}

	if config.Retention.Days <= 0 {
		return nil, fmt.Errorf("RETENTION_DAYS must be positive, got %d", config.Retention.Days)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// ArchiveEnabled reports whether expiring carts are uploaded before deletion.
func (c *RetentionConfig) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
