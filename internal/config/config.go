package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Local     LocalConfig
	Sync      SyncConfig
	Reporting ReportingConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
	AI        AIConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for the remote document store. An empty URI
// selects the in-process store.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// LocalConfig points at the SQLite file holding the queue and cache.
type LocalConfig struct {
	DBPath string
}

// SyncConfig tunes the offline queue replay.
type SyncConfig struct {
	UserID           string
	PollInterval     time.Duration
	ActionTimeout    time.Duration
	MaxAttempts      int
	ExcludedEntities []models.Entity
	ProbeURL         string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	DigestSchedule string
	Timezone       string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken     string
	PhoneNumberID   string
	BaseURL         string
	APIVersion      string
	DigestRecipient string
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string
}

// Enabled reports whether Sheets export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// Enabled reports whether digest notifications are configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.DigestRecipient != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when the environment is set directly.
		_ = godotenv.Load()
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromEnv() (*Config, error) {
	pollInterval, err := durationEnv("SYNC_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	actionTimeout, err := durationEnv("SYNC_ACTION_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := intEnv("SYNC_MAX_ATTEMPTS", 0)
	if err != nil {
		return nil, err
	}
	excluded, err := entitiesEnv("SYNC_EXCLUDED_ENTITIES")
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "herdwise"),
		},
		Local: LocalConfig{
			DBPath: getenvWithDefault("LOCAL_DB_PATH", "data/herdwise.db"),
		},
		Sync: SyncConfig{
			UserID:           os.Getenv("FARM_USER_ID"),
			PollInterval:     pollInterval,
			ActionTimeout:    actionTimeout,
			MaxAttempts:      maxAttempts,
			ExcludedEntities: excluded,
			ProbeURL:         os.Getenv("SYNC_PROBE_URL"),
		},
		Reporting: ReportingConfig{
			DigestSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			Timezone:       getenvWithDefault("TIMEZONE", "Africa/Johannesburg"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:     os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:   os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:         getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:      getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			DigestRecipient: os.Getenv("WHATSAPP_DIGEST_RECIPIENT"),
		},
		AI: AIConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}, nil
}

// Validate ensures that required configuration fields are populated and
// that optional integrations are either fully configured or absent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Local.DBPath == "" {
		return errors.New("LOCAL_DB_PATH must be provided")
	}

	if c.Sync.UserID == "" {
		return errors.New("FARM_USER_ID must be provided")
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided with MONGODB_URI")
	}

	switch {
	case c.Sync.PollInterval <= 0:
		return errors.New("SYNC_POLL_INTERVAL must be positive")
	case c.Sync.ActionTimeout <= 0:
		return errors.New("SYNC_ACTION_TIMEOUT must be positive")
	case c.Sync.MaxAttempts < 0:
		return errors.New("SYNC_MAX_ATTEMPTS must not be negative")
	}

	if _, err := cron.ParseStandard(c.Reporting.DigestSchedule); err != nil {
		return fmt.Errorf("REPORT_CRON_SCHEDULE is invalid: %w", err)
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	whatsappSet := c.WhatsApp.AccessToken != "" || c.WhatsApp.PhoneNumberID != "" || c.WhatsApp.DigestRecipient != ""
	if whatsappSet {
		switch {
		case c.WhatsApp.AccessToken == "":
			return errors.New("WHATSAPP_TOKEN must be provided")
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.DigestRecipient == "":
			return errors.New("WHATSAPP_DIGEST_RECIPIENT must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a duration: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not an integer: %w", key, err)
	}
	return n, nil
}

func entitiesEnv(key string) ([]models.Entity, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}

	var entities []models.Entity
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		entity, err := models.ParseEntity(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
