package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort         string
	ServerHost         string
	CORSAllowedOrigins []string
	LogMode            string

	// Database configuration
	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis configuration
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Generative model configuration
	ClaudeAPIKey     string
	ClaudeAPIBaseURL string
	ClaudeModel      string
	LLMTimeout       time.Duration

	// Weather provider configuration
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// Photo storage configuration
	UploadDir    string
	S3BucketName string
	AWSRegion    string
}

const (
	defaultServerPort         = "8080"
	defaultServerHost         = "0.0.0.0"
	defaultClaudeBaseURL      = "https://api.anthropic.com"
	defaultClaudeModel        = "claude-3-5-sonnet-20241022"
	defaultOpenWeatherBaseURL = "https://api.openweathermap.org"
	defaultUploadDir          = "uploads"
)

// loadDotEnv copies KEY=value pairs from path into the process environment.
// Variables that are already set win, and a missing file is ignored.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	if env == Development {
		path := os.Getenv("ENV_FILE")
		if path == "" {
			path = ".env"
		}
		if err := loadDotEnv(path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	// Load configuration based on environment
	switch env {
	case CI:
		if err := loadCIConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load CI configuration: %w", err)
		}
	case Development, Test, Production:
		if err := loadConfig(cfg, lookup); err != nil {
			return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
		}
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadCIConfig loads configuration for CI environment from environment variables only
func loadCIConfig(cfg *Config) error {
	if err := loadConfig(cfg, func(name string) string { return os.Getenv(name) }); err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("TEST_JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET or TEST_JWT_SECRET environment variable is required in CI environment")
	}
	return nil
}

func loadConfig(cfg *Config, get func(name string) string) error {
	var err error

	cfg.ServerPort = withDefault(get("SERVER_PORT"), defaultServerPort)
	cfg.ServerHost = withDefault(get("SERVER_HOST"), defaultServerHost)
	cfg.CORSAllowedOrigins = splitList(withDefault(get("CORS_ALLOWED_ORIGINS"), "http://localhost:5173"))
	cfg.LogMode = withDefault(get("LOG_MODE"), string(GetEnvironment()))

	cfg.DatabaseURL = get("DATABASE_URL")
	cfg.DBDriver = withDefault(get("DB_DRIVER"), "postgres")
	cfg.DBHost = withDefault(get("DB_HOST"), "localhost")
	cfg.DBPort = withDefault(get("DB_PORT"), "5432")
	cfg.DBUser = get("DB_USER")
	cfg.DBPassword = get("DB_PASSWORD")
	cfg.DBName = withDefault(get("DB_NAME"), "agrisoil")
	cfg.DBSSLMode = withDefault(get("DB_SSL_MODE"), "disable")

	cfg.RedisURL = get("REDIS_URL")
	cfg.RedisHost = get("REDIS_HOST")
	cfg.RedisPort = withDefault(get("REDIS_PORT"), "6379")
	cfg.RedisPassword = get("REDIS_PASSWORD")
	if cfg.RedisDB, err = intValue(get("REDIS_DB"), 0); err != nil {
		return fmt.Errorf("REDIS_DB: %w", err)
	}

	cfg.JWTSecret = withDefault(get("JWT_SECRET"), get("SECRET_KEY"))
	if cfg.AccessTokenTTL, err = durationValue(get("ACCESS_TOKEN_TTL"), 15*time.Minute); err != nil {
		return fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = durationValue(get("REFRESH_TOKEN_TTL"), 30*24*time.Hour); err != nil {
		return fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}

	cfg.ClaudeAPIKey = get("CLAUDE_API_KEY")
	cfg.ClaudeAPIBaseURL = withDefault(get("CLAUDE_API_BASE_URL"), defaultClaudeBaseURL)
	cfg.ClaudeModel = withDefault(get("CLAUDE_MODEL"), defaultClaudeModel)
	timeoutSeconds, err := intValue(get("LLM_TIMEOUT_SECONDS"), 60)
	if err != nil {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS: %w", err)
	}
	cfg.LLMTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.OpenWeatherAPIKey = get("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = withDefault(get("OPENWEATHER_BASE_URL"), defaultOpenWeatherBaseURL)

	cfg.UploadDir = withDefault(get("UPLOAD_DIR"), defaultUploadDir)
	cfg.S3BucketName = get("S3_BUCKET_NAME")
	cfg.AWSRegion = get("AWS_REGION")

	return nil
}

// DSN builds a postgres connection string from the individual DB settings
// unless DATABASE_URL is set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// RedisEnabled reports whether any Redis endpoint has been configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// lookup reads an environment variable and falls back to a Docker secret with
// the lowercased name.
func lookup(name string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return readSecret(strings.ToLower(name))
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func intValue(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

// durationValue accepts either a Go duration ("15m") or a plain number of seconds.
func durationValue(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
