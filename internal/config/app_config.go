// Package config loads the notifier configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8990.
	Port int `envconfig:"PORT" default:"8990"`

	// DataDir holds the SQLite database and logs. Defaults to ~/.crm-notifier.
	DataDir string `envconfig:"DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFormat selects "file" (rotated JSON under DataDir/logs) or "stdout".
	LogFormat string `envconfig:"LOG_FORMAT" default:"file"`

	// DBDriver is "sqlite" or "postgres".
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`

	// DatabaseURL is the postgres URL, or the SQLite file path. When empty
	// with sqlite, DataDir/crm-notifier.db is used.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// CronSecret authenticates the HTTP trigger. An empty secret rejects every call.
	CronSecret string `envconfig:"CRON_SECRET"`

	LookaheadDays         int           `envconfig:"LOOKAHEAD_DAYS" default:"7"`
	SuppressionWindowDays int           `envconfig:"SUPPRESSION_WINDOW_DAYS" default:"15"`
	NotificationKind      string        `envconfig:"NOTIFICATION_KIND" default:"EXPIRATION_WARNING"`
	Concurrency           int           `envconfig:"DISPATCH_CONCURRENCY" default:"1"`
	StoreTimeout          time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
	SendTimeout           time.Duration `envconfig:"SEND_TIMEOUT" default:"30s"`

	// BusinessTimezone decides which calendar day "today" is.
	BusinessTimezone string `envconfig:"BUSINESS_TIMEZONE" default:"Europe/Madrid"`

	// ScheduleCron enables the in-process scheduler when set (e.g. "0 8 * * *").
	ScheduleCron string `envconfig:"SCHEDULE_CRON"`
	// RunTimeout bounds every expiration run, whether scheduled, started over
	// HTTP or started from the check command. Client disconnects and signals
	// do not shorten it.
	RunTimeout time.Duration `envconfig:"RUN_TIMEOUT" default:"5m"`

	// Notifier is "smtp" or "log".
	Notifier       string `envconfig:"NOTIFIER" default:"smtp"`
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM" default:"onboarding@resend.dev"`
	SMTPFromName   string `envconfig:"SMTP_FROM_NAME" default:"MM Design Web"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	// NotifyRatePerSecond throttles outgoing mail; 0 disables throttling.
	NotifyRatePerSecond float64 `envconfig:"NOTIFY_RATE_PER_SECOND" default:"0"`
	NotifyBurst         int     `envconfig:"NOTIFY_BURST" default:"1"`

	// TestEmailTo is the default recipient of test emails.
	TestEmailTo string `envconfig:"TEST_EMAIL_TO"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
}

// Load reads AppConfig from the environment. Variables from the given
// dotenv files (default ".env") are applied first without overriding values
// already set; missing files are ignored. DataDir defaults to ~/.crm-notifier.
func Load(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".crm-notifier")
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory.
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DatabaseDSN returns the DSN for the configured driver.
func (c *AppConfig) DatabaseDSN() string {
	if c.DatabaseURL == "" && c.DBDriver != storage.DriverPostgres {
		return filepath.Join(c.DataDir, "crm-notifier.db")
	}
	return c.DatabaseURL
}

// Location parses BusinessTimezone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.BusinessTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.BusinessTimezone, err)
	}
	return loc, nil
}

// ExpirationConfig builds and validates the run configuration.
func (c *AppConfig) ExpirationConfig() (expiration.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return expiration.Config{}, err
	}
	cfg := expiration.Config{
		LookaheadDays:         c.LookaheadDays,
		SuppressionWindowDays: c.SuppressionWindowDays,
		Kind:                  c.NotificationKind,
		Concurrency:           c.Concurrency,
		StoreTimeout:          c.StoreTimeout,
		SendTimeout:           c.SendTimeout,
		Location:              loc,
	}
	if err := cfg.Validate(); err != nil {
		return expiration.Config{}, err
	}
	return cfg, nil
}

// SMTPConfig returns the SMTP provider settings.
func (c *AppConfig) SMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:       c.SMTPHost,
		Port:       c.SMTPPort,
		Username:   c.SMTPUsername,
		Password:   c.SMTPPassword,
		FromAddr:   c.SMTPFrom,
		FromName:   c.SMTPFromName,
		Encryption: c.SMTPEncryption,
	}
}

// Validate checks settings that do not belong to a single component.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.DBDriver {
	case storage.DriverSQLite:
	case storage.DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	switch c.Notifier {
	case "log":
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp notifier"))
		}
		if c.SMTPFrom == "" {
			errs = append(errs, errors.New("SMTP_FROM is required for the smtp notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported NOTIFIER %q", c.Notifier))
	}
	switch c.LogFormat {
	case "file", "stdout":
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, errors.New("RUN_TIMEOUT must be positive"))
	}
	if _, err := c.ExpirationConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
