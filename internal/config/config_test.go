package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                 "development",
		Port:                "8080",
		DBDriver:            "postgres",
		DBSSLMode:           "disable",
		DBPassword:          "secure-password",
		SessionSecret:       "secure-secret-at-least-32-chars-long",
		SessionCookieSecure: true,
		AvatarMaxSizeBytes:  2 * 1024 * 1024,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateSessionSecret(t *testing.T) {
	c := validConfig()
	c.SessionSecret = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.DBSSLMode = "require"
	c.SessionSecret = DefaultSessionSecret
	assert.Error(t, c.Validate())

	c.SessionSecret = "short"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateDriver(t *testing.T) {
	c := validConfig()
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())

	c.DBDriver = "sqlite"
	c.Env = "production"
	c.DBSSLMode = ""
	c.DBPassword = ""
	assert.NoError(t, c.Validate(), "sqlite deployments skip the postgres credential checks")
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DB_DRIVER")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DB_DRIVER", "SQLite")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, int64(2*1024*1024), c.AvatarMaxSizeBytes)
	assert.Equal(t, "ru", c.DefaultLocale)
	assert.Equal(t, 336, c.SessionTTLHours)
}
