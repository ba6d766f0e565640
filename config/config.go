package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIBaseURL = "https://api.tournament.io/v1/public"

// Config holds all application configuration.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string

	// Tournament platform API.
	APIBaseURL    string
	APIKey        string
	APITimeout    time.Duration
	APIMaxRetries int

	// Cloudflare R2 audit store. Optional: when unset, diagnostic webhook
	// deliveries skip snapshot uploads.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// AuditEnabled reports whether the R2 audit store is fully configured.
func (c *Config) AuditEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	apiKey := os.Getenv("KICKERTOOL_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("KICKERTOOL_API_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	timeoutSeconds, err := intFromEnv("KICKERTOOL_API_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	maxRetries, err := intFromEnv("KICKERTOOL_API_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	apiBase := os.Getenv("KICKERTOOL_API_BASE_URL")
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}

	return &Config{
		DatabaseURL:  dbURL,
		ServerPort:   port,
		JWTSecretKey: jwtKey,

		APIBaseURL:    apiBase,
		APIKey:        apiKey,
		APITimeout:    time.Duration(timeoutSeconds) * time.Second,
		APIMaxRetries: maxRetries,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}, nil
}

func intFromEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}
