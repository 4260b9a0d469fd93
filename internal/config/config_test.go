package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "0 5 0 * * *", cfg.SchedulerSpec)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.False(t, cfg.EmailEnabled())
}

func TestNewConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_CONN", "/tmp/ledger.db")
	t.Setenv("DEFAULT_CURRENCY", "inr")
	t.Setenv("TIMEZONE", "Asia/Kolkata")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SENDER_EMAIL", "ledger@example.com")
	t.Setenv("NOTIFY_EMAIL", "me@example.com")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "INR", cfg.DefaultCurrency)
	assert.True(t, cfg.EmailEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestNewConfigRejectsInvalid(t *testing.T) {
	tests := map[string]struct{ key, value string }{
		"driver":   {"DB_DRIVER", "mysql"},
		"conn":     {"DB_CONN", ""},
		"secret":   {"JWT_SECRET", ""},
		"currency": {"DEFAULT_CURRENCY", "dollars"},
		"timezone": {"TIMEZONE", "Mars/Olympus"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
