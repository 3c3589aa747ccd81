package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
database:
  name: clinic
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, "clinic", cfg.Database.Name)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "token", cfg.JWT.CookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.Expiry())
	assert.True(t, cfg.Policy.AllowDeleteResolved)
	assert.False(t, cfg.Policy.StrictAvailability)
	assert.Equal(t, "appointments", cfg.Redis.Channel)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
`)
	t.Setenv("TELEHEALTH_JWT_SECRET", "env-secret")
	t.Setenv("TELEHEALTH_DATABASE_HOST", "db.internal")
	t.Setenv("TELEHEALTH_POLICY_STRICT_AVAILABILITY", "true")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.Policy.StrictAvailability)
}

func TestValidateRequiresSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret is required")
}
