// Package config loads engine settings from the environment, an optional
// .env file and an optional YAML file for scheduler tuning.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SiteURL   string
	JWTSecret string

	Providers Providers
	Scheduler Scheduler
}

// Providers configures the external signal gateway. An empty BaseURL
// disables every provider.
type Providers struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// Scheduler holds cadence specs and task tuning
type Scheduler struct {
	Enabled          bool          `yaml:"-"`
	HourlySpec       string        `yaml:"hourly_spec"`
	DailySpec        string        `yaml:"daily_spec"`
	WeeklySpec       string        `yaml:"weekly_spec"`
	MonthlySpec      string        `yaml:"monthly_spec"`
	HourlyBatchSize  int           `yaml:"hourly_batch_size"`
	WorstBatchSize   int           `yaml:"worst_batch_size"`
	StaleAfterDays   int           `yaml:"stale_after_days"`
	LogRetentionDays int           `yaml:"log_retention_days"`
	IndexStaleAfter  time.Duration `yaml:"index_stale_after"`
	RankingWindow    time.Duration `yaml:"ranking_window"`
	LinkCheckTimeout time.Duration `yaml:"link_check_timeout"`
	ProbeExternal    bool          `yaml:"probe_external_links"`
}

// DefaultScheduler returns the stock cadence configuration
func DefaultScheduler() Scheduler {
	return Scheduler{
		Enabled:          true,
		HourlySpec:       "0 * * * *",
		DailySpec:        "0 2 * * *",
		WeeklySpec:       "0 3 * * 0",
		MonthlySpec:      "0 4 1 * *",
		HourlyBatchSize:  20,
		WorstBatchSize:   20,
		StaleAfterDays:   180,
		LogRetentionDays: 90,
		IndexStaleAfter:  24 * time.Hour,
		RankingWindow:    7 * 24 * time.Hour,
		LinkCheckTimeout: 10 * time.Second,
	}
}

type fileConfig struct {
	SiteURL   string    `yaml:"site_url"`
	Providers Providers `yaml:"providers"`
	Scheduler Scheduler `yaml:"scheduler"`
}

// Load reads the .env file named by ENV_PATH (default ".env", missing is
// fine), then the environment, then the YAML file named by SEO_CONFIG_FILE.
func Load() (*Config, error) {
	envPath := getEnvOrDefault("ENV_PATH", ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	cfg := FromEnv()

	if path := os.Getenv("SEO_CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		if err := cfg.applyYAML(f); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		slog.Info("Loaded config file", "path", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from environment variables and defaults
func FromEnv() *Config {
	sched := DefaultScheduler()
	sched.Enabled = getEnvBoolOrDefault("SCHEDULER_ENABLED", sched.Enabled)
	sched.HourlyBatchSize = getEnvIntOrDefault("HOURLY_BATCH_SIZE", sched.HourlyBatchSize)
	sched.StaleAfterDays = getEnvIntOrDefault("STALE_AFTER_DAYS", sched.StaleAfterDays)
	sched.LogRetentionDays = getEnvIntOrDefault("LOG_RETENTION_DAYS", sched.LogRetentionDays)
	sched.ProbeExternal = getEnvBoolOrDefault("PROBE_EXTERNAL_LINKS", sched.ProbeExternal)

	return &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		SiteURL:         getEnvOrDefault("SITE_URL", "http://localhost:3000"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Providers: Providers{
			BaseURL: os.Getenv("SEO_PROVIDER_URL"),
			Token:   os.Getenv("SEO_PROVIDER_TOKEN"),
			Timeout: getEnvDurationOrDefault("SEO_PROVIDER_TIMEOUT", 30*time.Second),
		},
		Scheduler: sched,
	}
}

// applyYAML overlays the non-zero values of a YAML document
func (c *Config) applyYAML(r io.Reader) error {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil {
		return err
	}

	if fc.SiteURL != "" {
		c.SiteURL = fc.SiteURL
	}
	if fc.Providers.BaseURL != "" {
		c.Providers.BaseURL = fc.Providers.BaseURL
	}
	if fc.Providers.Timeout > 0 {
		c.Providers.Timeout = fc.Providers.Timeout
	}

	s, o := &c.Scheduler, fc.Scheduler
	overlayString(&s.HourlySpec, o.HourlySpec)
	overlayString(&s.DailySpec, o.DailySpec)
	overlayString(&s.WeeklySpec, o.WeeklySpec)
	overlayString(&s.MonthlySpec, o.MonthlySpec)
	overlayInt(&s.HourlyBatchSize, o.HourlyBatchSize)
	overlayInt(&s.WorstBatchSize, o.WorstBatchSize)
	overlayInt(&s.StaleAfterDays, o.StaleAfterDays)
	overlayInt(&s.LogRetentionDays, o.LogRetentionDays)
	overlayDuration(&s.IndexStaleAfter, o.IndexStaleAfter)
	overlayDuration(&s.RankingWindow, o.RankingWindow)
	overlayDuration(&s.LinkCheckTimeout, o.LinkCheckTimeout)
	if o.ProbeExternal {
		s.ProbeExternal = true
	}
	return nil
}

// Validate rejects settings that would make the scheduler misbehave
func (c *Config) Validate() error {
	s := c.Scheduler
	if s.HourlyBatchSize <= 0 || s.WorstBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	if s.LogRetentionDays <= 0 || s.StaleAfterDays <= 0 {
		return fmt.Errorf("retention and staleness windows must be positive")
	}
	if s.IndexStaleAfter <= 0 {
		return fmt.Errorf("index staleness threshold must be positive")
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	return nil
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("Ignoring invalid boolean setting", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Ignoring invalid duration setting", "key", key, "value", value)
	}
	return defaultValue
}
