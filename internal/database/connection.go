package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// backoff between connection attempts; a database container often comes up
// after the API does
var defaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}

// InitDatabase connects to PostgreSQL or SQLite, retrying with exponential
// backoff, and sizes the connection pool
func InitDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	return initDatabase(cfg, defaultRetryDelays)
}

func initDatabase(cfg DatabaseConfig, retryDelays []time.Duration) (*gorm.DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"db_driver": cfg.driver(), "db_host": cfg.Host, "db_name": cfg.Name, "db_path": cfg.Path}
	log.WithFields(fields).Info("Initializing database connection")

	attempts := len(retryDelays)
	for attempt := 1; attempt <= attempts; attempt++ {
		var db *gorm.DB
		db, err = connect(dialector)
		if err == nil {
			configurePool(db, cfg)
			log.WithFields(fields).WithField("attempt", attempt).Info("Database initialized successfully")
			return db, nil
		}

		entry := log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "max_retries": attempts})
		if attempt == attempts {
			entry.Error("Database connection attempt failed")
			break
		}
		entry.WithField("delay", retryDelays[attempt-1]).Warn("Database connection attempt failed, retrying")
		time.Sleep(retryDelays[attempt-1])
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}

// connect opens the database and pings it, since gorm.Open alone does not
// prove the server is reachable
func connect(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func configurePool(db *gorm.DB, cfg DatabaseConfig) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	// every connection to ":memory:" opens a separate empty database
	if cfg.inMemory() {
		sqlDB.SetMaxOpenConns(1)
		log.Debug("In-memory SQLite, connection pool pinned to a single connection")
		return
	}

	maxOpen, maxIdle, lifetime := cfg.pool()
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	log.WithFields(logrus.Fields{
		"max_open_conns":    maxOpen,
		"max_idle_conns":    maxIdle,
		"conn_max_lifetime": lifetime.String(),
	}).Debug("Connection pool configured")
}
