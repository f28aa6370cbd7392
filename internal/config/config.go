package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Engine   EngineConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret                string
	AccessExpiration      time.Duration
	StreamTokenExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string

	// RetentionRead bounds how long read notifications are kept;
	// RetentionMax bounds any notification regardless of read state.
	RetentionRead time.Duration
	RetentionMax  time.Duration
}

// EngineConfig holds client engine configuration
type EngineConfig struct {
	ServerURL       string
	AccessToken     string
	PollInterval    time.Duration
	SnapshotLimit   int
	MutationTimeout time.Duration
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	QuietThreshold  int
	SoundEnabled    bool
	AlertGranted    bool
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "avd_notify"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	retentionRead, err := time.ParseDuration(getEnv("NOTIF_RETENTION_READ", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIF_RETENTION_READ: %w", err)
	}
	retentionMax, err := time.ParseDuration(getEnv("NOTIF_RETENTION_MAX", "2160h"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIF_RETENTION_MAX: %w", err)
	}

	config.App = AppConfig{
		Port:          appPort,
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		RetentionRead: retentionRead,
		RetentionMax:  retentionMax,
	}

	// JWT configuration
	accessExp, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	streamExp, err := time.ParseDuration(getEnv("JWT_STREAM_EXPIRATION_TIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_STREAM_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:                getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration:      accessExp,
		StreamTokenExpiration: streamExp,
	}

	// Engine configuration
	pollInterval, err := time.ParseDuration(getEnv("ENGINE_POLL_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_POLL_INTERVAL: %w", err)
	}
	mutationTimeout, err := time.ParseDuration(getEnv("ENGINE_MUTATION_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_MUTATION_TIMEOUT: %w", err)
	}
	backoffBase, err := time.ParseDuration(getEnv("ENGINE_BACKOFF_BASE", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_BACKOFF_BASE: %w", err)
	}
	backoffMax, err := time.ParseDuration(getEnv("ENGINE_BACKOFF_MAX", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_BACKOFF_MAX: %w", err)
	}
	snapshotLimit, err := strconv.Atoi(getEnv("ENGINE_SNAPSHOT_LIMIT", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_SNAPSHOT_LIMIT: %w", err)
	}
	quietThreshold, err := strconv.Atoi(getEnv("ENGINE_QUIET_THRESHOLD", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENGINE_QUIET_THRESHOLD: %w", err)
	}

	config.Engine = EngineConfig{
		ServerURL:       getEnv("ENGINE_SERVER_URL", "http://localhost:8080"),
		AccessToken:     getEnv("ENGINE_ACCESS_TOKEN", ""),
		PollInterval:    pollInterval,
		SnapshotLimit:   snapshotLimit,
		MutationTimeout: mutationTimeout,
		BackoffBase:     backoffBase,
		BackoffMax:      backoffMax,
		QuietThreshold:  quietThreshold,
		SoundEnabled:    getEnvBool("ENGINE_SOUND_ENABLED", true),
		AlertGranted:    getEnvBool("ENGINE_ALERT_GRANTED", false),
	}

	return config, nil
}

// ValidateServer checks the fields the API server requires.
func (c *Config) ValidateServer() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return nil
}

// ValidateEngine checks the fields the client engine requires.
func (c *Config) ValidateEngine() error {
	if c.Engine.ServerURL == "" {
		return fmt.Errorf("ENGINE_SERVER_URL is required")
	}
	if c.Engine.AccessToken == "" {
		return fmt.Errorf("ENGINE_ACCESS_TOKEN is required")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value == "true" || value == "1"
}
