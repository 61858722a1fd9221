package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SettingsEnv names the optional settings file (toml, yaml or json) read
// before environment overrides.
const SettingsEnv = "FINANCES_SETTINGS"

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string

	// Database
	SQLiteDBPath string

	// Household document (budget, accounts, tags)
	HouseholdFile string

	// Views
	PageSize      int
	RollingWindow int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Backend selection
	DataBackend string

	LogLevel string
}

var defaults = map[string]any{
	"port":                        "8081",
	"rate_limit_per_minute":       60,
	"trusted_proxies":             "",
	"sqlite_db_path":              "./data/finances.db",
	"finances_household_file":     "config.json",
	"page_size":                   50,
	"rolling_window":              30,
	"amqp_url":                    "",
	"amqp_exchange":               "finances",
	"amqp_queue":                  "ledger_mirror",
	"google_spreadsheet_id":       "",
	"google_sheet_name":           "Ledger",
	"google_service_account_file": "",
	"google_service_account_json": "",
	"sync_batch_size":             10,
	"sync_interval":               "30s",
	"data_backend":                "sqlite",
	"log_level":                   "info",
}

// Load reads the optional settings file named by FINANCES_SETTINGS and
// then lets environment variables override every key. Malformed numbers
// and durations fall back to their defaults.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := os.Getenv(SettingsEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:               v.GetString("port"),
		RateLimitPerMinute: getInt(v, "rate_limit_per_minute"),
		TrustedProxies:     splitList(v.GetString("trusted_proxies")),
		SQLiteDBPath:       v.GetString("sqlite_db_path"),
		HouseholdFile:      v.GetString("finances_household_file"),
		PageSize:           getInt(v, "page_size"),
		RollingWindow:      getInt(v, "rolling_window"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		GoogleSheetName:          v.GetString("google_sheet_name"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),

		SyncBatchSize: getInt(v, "sync_batch_size"),
		SyncInterval:  getDuration(v, "sync_interval"),

		DataBackend: v.GetString("data_backend"),
		LogLevel:    strings.ToLower(v.GetString("log_level")),
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.HouseholdFile == "" {
		errors = append(errors, "household file cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.PageSize < 1 || c.PageSize > 500 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and 500", c.PageSize))
	}
	if c.RollingWindow < 1 {
		errors = append(errors, fmt.Sprintf("invalid rolling window %d: must be at least 1", c.RollingWindow))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMirror checks the settings the mirror worker needs on top of
// Validate: a message broker and Google Sheets credentials.
func (c *Config) ValidateMirror() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required by the mirror worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required by the mirror worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required by the mirror worker")
	}

	hasFile := c.GoogleServiceAccountFile != ""
	hasJSON := c.GoogleServiceAccountJSON != ""
	if !hasFile && !hasJSON {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("mirror configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// GoogleCredentials returns the service account key, preferring inline JSON.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleServiceAccountJSON != "" {
		return []byte(c.GoogleServiceAccountJSON), nil
	}
	b, err := os.ReadFile(c.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// splitList reads a comma separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(v *viper.Viper, key string) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return i
	}
	return defaults[key].(int)
}

func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaults[key].(string))
	return d
}
