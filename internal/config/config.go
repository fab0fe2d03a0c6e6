package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Storage driver selectors.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Ledger    LedgerConfig
	Alerts    AlertsConfig
	Reporting ReportingConfig
	Sheets    SheetsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port  string
	Debug bool
}

// StorageConfig selects and configures the storage adapter.
type StorageConfig struct {
	Driver   string
	MongoURI string
	DBName   string
}

// LedgerConfig tunes the mutation transaction retry budget.
type LedgerConfig struct {
	MaxTxnAttempts int
}

// AlertsConfig configures stock transition delivery.
type AlertsConfig struct {
	WebhookURL string
}

// ReportingConfig holds the low-stock report schedule.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// SheetsConfig configures the optional Google Sheets audit mirror.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
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
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	maxAttempts, err := getenvInt("LEDGER_MAX_TXN_ATTEMPTS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:  getenvWithDefault("APP_PORT", "8080"),
			Debug: os.Getenv("APP_DEBUG") == "true",
		},
		Storage: StorageConfig{
			Driver:   getenvWithDefault("STORAGE_DRIVER", DriverMongo),
			MongoURI: getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName:   getenvWithDefault("MONGODB_DB_NAME", "stockroom"),
		},
		Ledger: LedgerConfig{
			MaxTxnAttempts: maxAttempts,
		},
		Alerts: AlertsConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 8 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_AUDIT_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.Storage.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Ledger.MaxTxnAttempts <= 0 {
		return errors.New("LEDGER_MAX_TXN_ATTEMPTS must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	// The Sheets mirror is optional but must be configured in full when enabled.
	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_AUDIT_ID must be set together")
	}

	return nil
}

// SheetsEnabled reports whether the audit mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
