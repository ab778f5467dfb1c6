package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/database"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(LevelForEnvironment(GetEnvWithDefault("APP_ENV", "development")))
}

// LevelForEnvironment maps APP_ENV onto a log level
func LevelForEnvironment(environment string) logrus.Level {
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		// Default to info level for other environments
		return logrus.InfoLevel
	}
}

// Config used for the store API configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port        int    `json:"port"`
	Host        string `json:"host"`
	Environment string `json:"environment"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	DatabaseURL string `json:"database_url"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`

	DBMaxOpenConns    int           `json:"db_max_open_conns"`
	DBMaxIdleConns    int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `json:"db_conn_max_lifetime"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret             string `json:"jwt_secret"`
	TelegramWebhookSecret string `json:"telegram_webhook_secret"`
	TelegramAPIURL        string `json:"telegram_api_url"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Environment: %s, DBDriver: %s, DBPath: %s, DatabaseURL: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], LogLevel: %s, JWTSecret: [REDACTED], TelegramWebhookSecret: %s}",
		c.Port, c.Host, c.Environment, c.DBDriver, c.DBPath, maskDatabaseURL(c.DatabaseURL), c.DBHost, c.DBName, c.DBUser, c.LogLevel, redact(c.TelegramWebhookSecret))
}

// Database returns the connection settings for database.InitDatabase
func (c *Config) Database() database.DatabaseConfig {
	return database.DatabaseConfig{
		Driver:   c.DBDriver,
		URL:      c.DatabaseURL,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
		Path:     c.DBPath,

		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig reads the store API configuration from environment variables
// It validates the port, the database driver and DATABASE_URL when one is given
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	driver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "postgres" && driver != "postgresql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres)", driver)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL != "" {
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	config := &Config{
		Port:                  port,
		Host:                  GetEnvWithDefault("APP_HOST", "localhost"),
		Environment:           GetEnvWithDefault("APP_ENV", "development"),
		DBDriver:              driver,
		DBPath:                GetEnvWithDefault("DB_PATH", "pizzeria.sqlite"),
		DatabaseURL:           dbURL,
		DBHost:                GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:                GetEnvWithDefault("DB_PORT", "5432"),
		DBName:                GetEnvWithDefault("DB_NAME", "pizzeria"),
		DBUser:                GetEnvWithDefault("DB_USER", "pizzeria"),
		DBPassword:            GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:             GetEnvWithDefault("DB_SSLMODE", "disable"),
		DBMaxOpenConns:        GetEnvAsType("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:        GetEnvAsType("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:     GetEnvAsType("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		LogLevel:              GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:             GetEnvWithDefault("JWT_SECRET", "secret"),
		TelegramWebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		TelegramAPIURL:        os.Getenv("TELEGRAM_API_URL"),
	}
	if config.Environment == "production" && config.JWTSecret == "secret" {
		return nil, errors.New("JWT_SECRET must be set in production")
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// StorefrontConfig configures a storefront device
type StorefrontConfig struct {
	StoreBaseURL        string
	CachePath           string
	StoreTimeout        time.Duration
	CookingStages       int
	CookingPollInterval time.Duration
	TelegramAPIURL      string
	Integrations        models.Integrations
}

// String returns a string representation of StorefrontConfig with secrets masked
func (c *StorefrontConfig) String() string {
	return fmt.Sprintf("StorefrontConfig{StoreBaseURL: %s, CachePath: %s, StoreTimeout: %s, CookingStages: %d, CookingPollInterval: %s, TelegramBotToken: %s, TelegramChatID: %s, StoreClientID: %s, StoreClientSecret: %s}",
		c.StoreBaseURL, c.CachePath, c.StoreTimeout, c.CookingStages, c.CookingPollInterval,
		redact(c.Integrations.TelegramBotToken), c.Integrations.TelegramChatID, c.Integrations.StoreClientID, redact(c.Integrations.StoreClientSecret))
}

// LoadStorefrontConfig reads the device configuration from environment variables
func LoadStorefrontConfig() (*StorefrontConfig, error) {
	baseURL := GetEnvWithDefault("STORE_BASE_URL", "http://localhost:8080")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid STORE_BASE_URL: %w", err)
	}

	config := &StorefrontConfig{
		StoreBaseURL:        baseURL,
		CachePath:           GetEnvWithDefault("CACHE_PATH", "storefront.db"),
		StoreTimeout:        GetEnvAsType("STORE_TIMEOUT", 10*time.Second),
		CookingStages:       GetEnvAsType("COOKING_STAGES", 8),
		CookingPollInterval: GetEnvAsType("COOKING_POLL_INTERVAL", time.Second),
		TelegramAPIURL:      os.Getenv("TELEGRAM_API_URL"),
		Integrations: models.Integrations{
			TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
			TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
			StoreClientID:     os.Getenv("STORE_CLIENT_ID"),
			StoreClientSecret: os.Getenv("STORE_CLIENT_SECRET"),
		},
	}
	if config.CookingStages < 1 {
		return nil, fmt.Errorf("COOKING_STAGES must be at least 1, got %d", config.CookingStages)
	}
	if config.CookingPollInterval <= 0 || config.StoreTimeout <= 0 {
		return nil, errors.New("STORE_TIMEOUT and COOKING_POLL_INTERVAL must be positive durations")
	}
	log.Debugf("Storefront configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(d).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
