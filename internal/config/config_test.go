package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	testCases := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "should return env value when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "from_env",
			expected:     "from_env",
		},
		{
			name:         "should return default when env not set",
			key:          "MISSING_KEY",
			defaultValue: "default_value",
			envValue:     "",
			expected:     "default_value",
		},
		{
			name:         "should return empty string default",
			key:          "EMPTY_KEY",
			defaultValue: "",
			envValue:     "",
			expected:     "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.expected, GetEnvWithDefault(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvAsType(t *testing.T) {
	t.Setenv("STAGES", "12")
	t.Setenv("BROKEN_STAGES", "twelve")
	t.Setenv("POLL", "250ms")
	t.Setenv("FLAG", "true")

	assert.Equal(t, 12, GetEnvAsType("STAGES", 8))
	assert.Equal(t, 8, GetEnvAsType("BROKEN_STAGES", 8))
	assert.Equal(t, 8, GetEnvAsType("UNSET_STAGES", 8))
	assert.Equal(t, 250*time.Millisecond, GetEnvAsType("POLL", time.Second))
	assert.True(t, GetEnvAsType("FLAG", false))
}

func clearServerEnv() {
	for _, v := range []string{
		"APP_PORT", "APP_HOST", "APP_ENV", "LOG_LEVEL", "JWT_SECRET",
		"DB_DRIVER", "DB_PATH", "DATABASE_URL", "TELEGRAM_WEBHOOK_SECRET",
	} {
		os.Unsetenv(v)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("successful config load with all env vars", func(t *testing.T) {
		clearServerEnv()
		t.Setenv("APP_PORT", "9000")
		t.Setenv("APP_HOST", "0.0.0.0")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("JWT_SECRET", "super_secret_jwt_key")
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "postgres://pizza:hunter2@db:5432/pizzeria")
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "hook")

		config, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 9000, config.Port)
		assert.Equal(t, "0.0.0.0", config.Host)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, "postgres", config.DBDriver)
		assert.Equal(t, "hook", config.TelegramWebhookSecret)

		printed := config.String()
		assert.NotContains(t, printed, "hunter2")
		assert.NotContains(t, printed, "super_secret_jwt_key")
		assert.NotContains(t, printed, "hook}")

		db := config.Database()
		assert.Equal(t, "postgres://pizza:hunter2@db:5432/pizzeria", db.DSN())
	})

	t.Run("should fail with invalid port", func(t *testing.T) {
		clearServerEnv()
		t.Setenv("APP_PORT", "not_a_number")

		config, err := LoadConfig()
		assert.Error(t, err)
		assert.Nil(t, config)
	})

	t.Run("should fail with unknown driver", func(t *testing.T) {
		clearServerEnv()
		t.Setenv("DB_DRIVER", "oracle")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("should refuse the default secret in production", func(t *testing.T) {
		clearServerEnv()
		t.Setenv("APP_ENV", "production")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("should use defaults when optional env vars not set", func(t *testing.T) {
		clearServerEnv()

		config, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "info", config.LogLevel)
		assert.Equal(t, "sqlite", config.DBDriver)
		dbConfig := config.Database()
		assert.Equal(t, "pizzeria.sqlite", dbConfig.DSN())
	})
}

func TestLoadStorefrontConfig(t *testing.T) {
	t.Setenv("STORE_BASE_URL", "https://store.pizza.test")
	t.Setenv("COOKING_STAGES", "10")
	t.Setenv("COOKING_POLL_INTERVAL", "2s")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("STORE_CLIENT_SECRET", "device-secret")

	config, err := LoadStorefrontConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://store.pizza.test", config.StoreBaseURL)
	assert.Equal(t, 10, config.CookingStages)
	assert.Equal(t, 2*time.Second, config.CookingPollInterval)
	assert.Equal(t, 10*time.Second, config.StoreTimeout)
	assert.Equal(t, "123:abc", config.Integrations.TelegramBotToken)

	printed := config.String()
	assert.NotContains(t, printed, "123:abc")
	assert.NotContains(t, printed, "device-secret")

	t.Setenv("COOKING_STAGES", "0")
	_, err = LoadStorefrontConfig()
	assert.Error(t, err)
}

func BenchmarkGetEnvWithDefault(b *testing.B) {
	os.Setenv("BENCH_KEY", "test_value")
	defer os.Unsetenv("BENCH_KEY")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetEnvWithDefault("BENCH_KEY", "default")
	}
}
