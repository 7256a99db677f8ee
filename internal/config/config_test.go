package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

var envKeys = []string{
	"APP_PORT", "MONGODB_URI", "MONGODB_DB_NAME", "LOCAL_DB_PATH", "FARM_USER_ID",
	"SYNC_POLL_INTERVAL", "SYNC_ACTION_TIMEOUT", "SYNC_MAX_ATTEMPTS", "SYNC_EXCLUDED_ENTITIES", "SYNC_PROBE_URL",
	"REPORT_CRON_SCHEDULE", "TIMEZONE", "GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID",
	"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_BASE_URL", "WHATSAPP_API_VERSION",
	"WHATSAPP_DIGEST_RECIPIENT", "ANTHROPIC_API_KEY", "LOG_LEVEL",
}

// isolate unsets every variable the loader reads; t.Setenv restores them.
// Unsetting matters because godotenv never overrides a present variable.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("FARM_USER_ID", "farm-1")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.MongoDB.URI)
	assert.Equal(t, "herdwise", cfg.MongoDB.DBName)
	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Sync.ActionTimeout)
	assert.Zero(t, cfg.Sync.MaxAttempts)
	assert.Empty(t, cfg.Sync.ExcludedEntities)
	assert.Equal(t, "0 20 * * 5", cfg.Reporting.DigestSchedule)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	path := writeEnv(t, `
FARM_USER_ID=farm-2
SYNC_POLL_INTERVAL=30s
SYNC_MAX_ATTEMPTS=5
SYNC_EXCLUDED_ENTITIES=camps, event
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "farm-2", cfg.Sync.UserID)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, []models.Entity{models.EntityCamp, models.EntityEvent}, cfg.Sync.ExcludedEntities)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing user":     {},
		"bad duration":     {"FARM_USER_ID": "u", "SYNC_ACTION_TIMEOUT": "soon"},
		"negative poll":    {"FARM_USER_ID": "u", "SYNC_POLL_INTERVAL": "-1s"},
		"bad attempts":     {"FARM_USER_ID": "u", "SYNC_MAX_ATTEMPTS": "many"},
		"unknown entity":   {"FARM_USER_ID": "u", "SYNC_EXCLUDED_ENTITIES": "tractors"},
		"bad cron":         {"FARM_USER_ID": "u", "REPORT_CRON_SCHEDULE": "every friday"},
		"bad timezone":     {"FARM_USER_ID": "u", "TIMEZONE": "Mars/Olympus"},
		"half sheets":      {"FARM_USER_ID": "u", "GOOGLE_SHEET_DATABASE_ID": "sheet"},
		"half whatsapp":    {"FARM_USER_ID": "u", "WHATSAPP_TOKEN": "token"},
		"whatsapp no dest": {"FARM_USER_ID": "u", "WHATSAPP_TOKEN": "token", "WHATSAPP_PHONE_NUMBER_ID": "123"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	assert.Error(t, cfg.Validate())
}
