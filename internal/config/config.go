package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration. It is built once in main and
// passed down explicitly; nothing reads the environment after startup.
type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Port                string
	SyncDefaultLimit    int
	SyncTimeoutSeconds  int
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILPILOT_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("MAILPILOT_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("MAILPILOT_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILPILOT_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILPILOT_DB_USER", "mailpilot"),
		DBPassword:          os.Getenv("MAILPILOT_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILPILOT_DB_NAME", "mailpilot"),
		DBSSLMode:           getEnvOrDefault("MAILPILOT_DB_SSLMODE", "disable"),
		Port:                getEnvOrDefault("PORT", "8080"),
		SyncDefaultLimit:    getEnvIntOrDefault("MAILPILOT_SYNC_DEFAULT_LIMIT", 50),
		SyncTimeoutSeconds:  getEnvIntOrDefault("MAILPILOT_SYNC_TIMEOUT_SECONDS", 120),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILPILOT_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILPILOT_DB_PASSWORD is required")
	}

	if c.SyncDefaultLimit <= 0 {
		return fmt.Errorf("MAILPILOT_SYNC_DEFAULT_LIMIT must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
