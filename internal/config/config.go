package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"finboard/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Currency all summaries are converted into
	BaseCurrency string

	// AMQP
	AMQPURL            string
	AMQPExchange       string
	AMQPRatesQueue     string
	AMQPRemindersQueue string

	// Redis exchange-rate cache (optional)
	RedisAddr     string
	RatesCacheTTL time.Duration

	// In-process settlement summary cache. Rate changes from other processes
	// clear it through Redis; without REDIS_ADDR they show up only once
	// SummaryCacheTTL has passed.
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	// Worker
	ReminderSchedule   string
	ReminderWindowDays int

	// Google Sheets settlement export (optional)
	GoogleSpreadsheetID      string
	GoogleSettlementSheet    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finboard.db"),
		BaseCurrency: core.NormalizeCurrency(getEnv("BASE_CURRENCY", "EUR")),

		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "finboard"),
		AMQPRatesQueue:     getEnv("AMQP_RATES_QUEUE", "exchange_rates"),
		AMQPRemindersQueue: getEnv("AMQP_REMINDERS_QUEUE", "due_reminders"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RatesCacheTTL: getEnvDuration("RATES_CACHE_TTL", time.Hour),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 128),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),

		ReminderSchedule:   getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderWindowDays: getEnvInt("REMINDER_WINDOW_DAYS", 3),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSettlementSheet:    getEnv("GOOGLE_SETTLEMENT_SHEET", "Settlements"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if err := core.ValidateCurrency(c.BaseCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a three-letter code", c.BaseCurrency))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRatesQueue == "" || c.AMQPRemindersQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.RedisAddr != "" && c.RatesCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: must be at least 1 second", c.RatesCacheTTL))
	}

	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be positive", c.SummaryCacheTTL))
	}

	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
	}
	if c.ReminderWindowDays < 0 || c.ReminderWindowDays > 31 {
		errors = append(errors, fmt.Sprintf("invalid reminder window %d: must be between 0 and 31 days", c.ReminderWindowDays))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSettlementSheet == "" {
			errors = append(errors, "Google settlement sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsEnabled reports whether settlement export to Google Sheets is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
