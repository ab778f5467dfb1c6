package database

import (
	"testing"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      DatabaseConfig
		expected string
	}{
		{"sqlite path", DatabaseConfig{Driver: "sqlite", Path: "pizzeria.sqlite"}, "pizzeria.sqlite"},
		{"empty driver is sqlite", DatabaseConfig{Path: ":memory:"}, ":memory:"},
		{"postgres fields", DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"},
			"host=db user=u password=p dbname=n port=5432 sslmode=disable"},
		{"postgres url wins", DatabaseConfig{Driver: "postgres", URL: "postgres://u:p@db/n", Host: "ignored"}, "postgres://u:p@db/n"},
		{"unknown driver", DatabaseConfig{Driver: "oracle"}, ""},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.DSN())
		})
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := DatabaseConfig{Driver: "postgres", URL: "postgres://u:hunter2@db/n", Password: "hunter2"}
	assert.NotContains(t, cfg.String(), "hunter2")
}

func TestInitDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := initDatabase(DatabaseConfig{Driver: "oracle"}, []time.Duration{0})
	assert.Error(t, err)
}

func TestMigrateAndSeed(t *testing.T) {
	db, err := initDatabase(DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, []time.Duration{0})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var menu []models.Pizza
	require.NoError(t, db.Order("position").Find(&menu).Error)
	require.Len(t, menu, len(models.DefaultMenu()))
	assert.Equal(t, models.DefaultMenu()[0].ID, menu[0].ID)
}

func TestPoolDefaults(t *testing.T) {
	maxOpen, maxIdle, lifetime := (&DatabaseConfig{}).pool()
	assert.Equal(t, defaultMaxOpenConns, maxOpen)
	assert.Equal(t, defaultMaxIdleConns, maxIdle)
	assert.Equal(t, defaultConnMaxLifetime, lifetime)

	maxOpen, maxIdle, lifetime = (&DatabaseConfig{MaxOpenConns: 3, MaxIdleConns: 1, ConnMaxLifetime: time.Minute}).pool()
	assert.Equal(t, 3, maxOpen)
	assert.Equal(t, 1, maxIdle)
	assert.Equal(t, time.Minute, lifetime)
}

func TestInMemoryDetection(t *testing.T) {
	assert.True(t, (&DatabaseConfig{Path: ":memory:"}).inMemory())
	assert.True(t, (&DatabaseConfig{Driver: "SQLite", Path: "file::memory:?cache=shared"}).inMemory())
	assert.False(t, (&DatabaseConfig{Driver: "sqlite", Path: "pizzeria.sqlite"}).inMemory())
	assert.False(t, (&DatabaseConfig{Driver: "postgresql", Path: ":memory:"}).inMemory())
}
