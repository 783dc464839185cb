package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP notification transport; empty URL means notifications are logged
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	Timezone        string
	MilestoneDedup  bool
	NotifyQueueSize int
	NotifyWorkers   int

	// Optional YAML file replacing the built-in default categories
	CategoryDefaultsFile string

	// Scheduler
	DeadlineSweepInterval time.Duration
	ProgressSweepInterval time.Duration
	ReportCheckInterval   time.Duration

	// Google Sheets monthly report export, disabled without a spreadsheet ID
	GoogleSpreadsheetID      string
	GoogleReportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "goal_notifications"),

		Timezone:        getEnv("LEDGER_TIMEZONE", "UTC"),
		MilestoneDedup:  getEnvBool("MILESTONE_DEDUP", true),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyWorkers:   getEnvInt("NOTIFY_WORKERS", 2),

		CategoryDefaultsFile: getEnv("CATEGORY_DEFAULTS_FILE", ""),

		DeadlineSweepInterval: getEnvDuration("DEADLINE_SWEEP_INTERVAL", 24*time.Hour),
		ProgressSweepInterval: getEnvDuration("PROGRESS_SWEEP_INTERVAL", 7*24*time.Hour),
		ReportCheckInterval:   getEnvDuration("REPORT_CHECK_INTERVAL", 24*time.Hour),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheetName:    getEnv("GOOGLE_REPORT_SHEET_NAME", "Reports"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves Timezone. Validate reports an unknown zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReportExportEnabled reports whether monthly reports go to Google Sheets.
func (c *Config) ReportExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

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
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
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

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.NotifyQueueSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid notify queue size %d: must be at least 1", c.NotifyQueueSize))
	}
	if c.NotifyWorkers < 1 || c.NotifyWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid notify workers %d: must be between 1 and 64", c.NotifyWorkers))
	}

	if c.CategoryDefaultsFile != "" {
		if _, err := LoadCategoryDefaults(c.CategoryDefaultsFile); err != nil {
			errors = append(errors, fmt.Sprintf("invalid category defaults file '%s': %v", c.CategoryDefaultsFile, err))
		}
	}

	for name, d := range map[string]time.Duration{
		"deadline sweep interval": c.DeadlineSweepInterval,
		"progress sweep interval": c.ProgressSweepInterval,
		"report check interval":   c.ReportCheckInterval,
	} {
		if d < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be at least 1 minute", name, d))
		}
	}

	if c.ReportExportEnabled() {
		if c.GoogleReportSheetName == "" {
			errors = append(errors, "Google report sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
