package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"chitieu/internal/amqp"
	"chitieu/internal/inference"
	"chitieu/internal/reminder"
	"chitieu/internal/sheets/google"
)

type Config struct {
	// HTTP Server
	Port         string
	LogLevel     string
	RateLimitRPM int

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL           string
	AMQPExchange      string
	AMQPQueue         string
	AMQPReminderQueue string

	// Models
	ModelProvider   string
	ModelTimeout    time.Duration
	HFToken         string
	HFBaseURL       string
	NERModel        string
	ClassifierModel string
	GenModel        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string

	// Assistant
	LargeExpenseVND    decimal.Decimal
	ReviewAfterExpense bool
	ReminderSchedule   string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	ReviewBatchSize int

	// Backend selection
	DataBackend string
}

var (
	validBackends  = []string{"memory", "sqlite"}
	validProviders = []string{"none", "huggingface", "openai", "gemini"}
)

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 60),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/chitieu.db"),

		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "chitieu"),
		AMQPQueue:         getEnv("AMQP_QUEUE", "expense_recorded"),
		AMQPReminderQueue: getEnv("AMQP_REMINDER_QUEUE", "reminders"),

		ModelProvider:   strings.ToLower(getEnv("MODEL_PROVIDER", "none")),
		ModelTimeout:    getEnvDuration("MODEL_TIMEOUT", 3*time.Second),
		HFToken:         getEnv("HF_TOKEN", ""),
		HFBaseURL:       getEnv("HF_BASE_URL", ""),
		NERModel:        getEnv("NER_MODEL", ""),
		ClassifierModel: getEnv("CLASSIFIER_MODEL", ""),
		GenModel:        getEnv("GEN_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		LargeExpenseVND:    getEnvDecimal("LARGE_EXPENSE_VND", decimal.NewFromInt(50_000_000)),
		ReviewAfterExpense: getEnvBool("REVIEW_AFTER_EXPENSE", false),
		ReminderSchedule:   getEnv("REMINDER_SCHEDULE", reminder.DefaultSchedule),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", google.DefaultSheetName),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ReviewBatchSize: getEnvInt("REVIEW_BATCH_SIZE", 10),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
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

	if !slices.Contains(validBackends, c.DataBackend) {
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

	// AMQP is optional; when set it needs a valid URL and names
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
		if c.AMQPReminderQueue == "" {
			errors = append(errors, "AMQP reminder queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validProviders, c.ModelProvider) {
		errors = append(errors, fmt.Sprintf("invalid model provider '%s': must be one of %v", c.ModelProvider, validProviders))
	}
	switch c.ModelProvider {
	case "huggingface":
		if c.HFToken == "" {
			errors = append(errors, "HF_TOKEN is required when using the huggingface provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			errors = append(errors, "either OPENAI_API_KEY or OPENAI_BASE_URL must be provided for the openai provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when using the gemini provider")
		}
	}
	if c.ModelTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid model timeout %v: must be at least 100ms", c.ModelTimeout))
	} else if c.ModelTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid model timeout %v: must be at most 1 minute", c.ModelTimeout))
	}

	if !c.LargeExpenseVND.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid large expense threshold %s: must be positive", c.LargeExpenseVND))
	}
	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	// Validate worker configuration
	if c.ReviewBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid review batch size %d: must be at least 1", c.ReviewBatchSize))
	} else if c.ReviewBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid review batch size %d: must be at most 1000", c.ReviewBatchSize))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQP returns the broker settings, or false when messaging is disabled.
func (c *Config) AMQP() (amqp.Config, bool) {
	return amqp.Config{
		URL:           c.AMQPURL,
		Exchange:      c.AMQPExchange,
		ExpenseQueue:  c.AMQPQueue,
		ReminderQueue: c.AMQPReminderQueue,
	}, c.AMQPURL != ""
}

func (c *Config) Inference() inference.Config {
	return inference.Config{
		Provider:        inference.Provider(c.ModelProvider),
		HFToken:         c.HFToken,
		HFBaseURL:       c.HFBaseURL,
		NERModel:        c.NERModel,
		ClassifierModel: c.ClassifierModel,
		GenModel:        c.GenModel,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIBaseURL:   c.OpenAIBaseURL,
		OpenAIModel:     c.OpenAIModel,
		GeminiAPIKey:    c.GeminiAPIKey,
		GeminiModel:     c.GeminiModel,
	}
}

// Sheets returns the mirror settings, or false when no spreadsheet is set.
func (c *Config) Sheets() (google.Config, bool) {
	return google.Config{
		SpreadsheetID:   c.GoogleSpreadsheetID,
		SheetName:       c.GoogleSheetName,
		CredentialsJSON: c.GoogleServiceAccountJSON,
		CredentialsFile: c.GoogleServiceAccountFile,
	}, c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

// getEnvDecimal accepts thousand separators, so "50,000,000" works.
func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "")); err == nil {
			return d
		}
	}
	return defaultValue
}
