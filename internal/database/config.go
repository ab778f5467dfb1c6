package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Pool defaults used when DatabaseConfig leaves them at zero
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// DatabaseConfig describes where the store keeps menu, orders, settings and accounts
type DatabaseConfig struct {
	// Driver is postgres or sqlite; empty means sqlite
	Driver string

	// URL is a full PostgreSQL connection URL and wins over the discrete fields
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// Path is the SQLite file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c *DatabaseConfig) driver() string {
	switch d := strings.ToLower(c.Driver); d {
	case "", "sqlite":
		return "sqlite"
	case "postgres", "postgresql":
		return "postgres"
	default:
		return d
	}
}

// String returns a string representation with sensitive data masked
func (c *DatabaseConfig) String() string {
	url := ""
	if c.URL != "" {
		url = "[REDACTED]"
	}
	return fmt.Sprintf("DatabaseConfig{Driver: %s, URL: %s, Host: %s, Port: %s, User: %s, Password: [REDACTED], Name: %s, SSLMode: %s, Path: %s}",
		c.driver(), url, c.Host, c.Port, c.User, c.Name, c.SSLMode, c.Path)
}

// DSN builds the connection string for the configured driver, or "" for an unknown one
func (c *DatabaseConfig) DSN() string {
	switch c.driver() {
	case "postgres":
		if c.URL != "" {
			return c.URL
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	case "sqlite":
		return c.Path
	}
	return ""
}

func (c *DatabaseConfig) dialector() (gorm.Dialector, error) {
	switch c.driver() {
	case "postgres":
		return postgres.Open(c.DSN()), nil
	case "sqlite":
		return sqlite.Open(c.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", c.Driver)
}

// inMemory reports an SQLite database that lives only as long as its connection
func (c *DatabaseConfig) inMemory() bool {
	return c.driver() == "sqlite" && strings.Contains(c.Path, ":memory:")
}

func (c *DatabaseConfig) pool() (maxOpen, maxIdle int, lifetime time.Duration) {
	maxOpen, maxIdle, lifetime = c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	return maxOpen, maxIdle, lifetime
}
