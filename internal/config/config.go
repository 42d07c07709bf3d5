package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	APIBaseURL     string
	HTTPAddr       string
	LogLevel       string
	RequestTimeout time.Duration
	// RulesDir, when set, replaces the bundled rule tables.
	RulesDir string
	// FormsSchema, when set, replaces the bundled OpenAPI document.
	FormsSchema string
	// TemplatesDir, when set, holds form.html or field.html pages that
	// replace the bundled markup.
	TemplatesDir string
}

// Load reads configuration from the environment. Values from a .env file in
// the working directory are applied first without overriding variables that
// are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(), nil
}

// LoadFiles is Load with explicit env files.
func LoadFiles(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", strings.Join(files, ", "), err)
		}
	}
	return FromEnv(), nil
}

// FromEnv reads configuration from the process environment only.
func FromEnv() *Config {
	return &Config{
		APIBaseURL:     getEnv("CAREFRONT_API_BASE_URL", "http://localhost:8000/api"),
		HTTPAddr:       getEnv("CAREFRONT_HTTP_ADDR", ":8080"),
		LogLevel:       strings.ToLower(strings.TrimSpace(getEnv("CAREFRONT_LOG_LEVEL", "info"))),
		RequestTimeout: getEnvAsDuration("CAREFRONT_REQUEST_TIMEOUT", 10*time.Second),
		RulesDir:       getEnv("CAREFRONT_RULES_DIR", ""),
		FormsSchema:    getEnv("CAREFRONT_FORMS_SCHEMA", ""),
		TemplatesDir:   getEnv("CAREFRONT_TEMPLATES_DIR", ""),
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, errors.New("CAREFRONT_API_BASE_URL is required"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("CAREFRONT_REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("CAREFRONT_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
