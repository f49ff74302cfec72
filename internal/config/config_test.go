package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SEO_PROVIDER_URL", "")
	t.Setenv("HOURLY_BATCH_SIZE", "")

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.Providers.BaseURL)
	assert.Equal(t, DefaultScheduler().HourlyBatchSize, cfg.Scheduler.HourlyBatchSize)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.IndexStaleAfter)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HOURLY_BATCH_SIZE", "5")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SEO_PROVIDER_TIMEOUT", "5s")
	t.Setenv("LOG_RETENTION_DAYS", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.Scheduler.HourlyBatchSize)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 90, cfg.Scheduler.LogRetentionDays)
}

func TestApplyYAML_OverlaysNonZeroValues(t *testing.T) {
	cfg := FromEnv()
	doc := `
site_url: https://blog.example.com
providers:
  base_url: https://gateway.example.com
  timeout: 12s
scheduler:
  daily_spec: "30 1 * * *"
  worst_batch_size: 50
  index_stale_after: 6h
`
	require.NoError(t, cfg.applyYAML(strings.NewReader(doc)))

	assert.Equal(t, "https://blog.example.com", cfg.SiteURL)
	assert.Equal(t, "https://gateway.example.com", cfg.Providers.BaseURL)
	assert.Equal(t, 12*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, "30 1 * * *", cfg.Scheduler.DailySpec)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.HourlySpec)
	assert.Equal(t, 50, cfg.Scheduler.WorstBatchSize)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.IndexStaleAfter)
}

func TestLoad_ReadsEnvFileAndYAML(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	yamlFile := filepath.Join(dir, "seo.yaml")
	require.NoError(t, os.WriteFile(envFile, []byte("STALE_AFTER_DAYS=30\n"), 0o600))
	require.NoError(t, os.WriteFile(yamlFile, []byte("scheduler:\n  hourly_batch_size: 7\n"), 0o600))

	t.Setenv("ENV_PATH", envFile)
	t.Setenv("SEO_CONFIG_FILE", yamlFile)
	// godotenv never overrides a variable that is present, even when empty
	t.Setenv("STALE_AFTER_DAYS", "")
	require.NoError(t, os.Unsetenv("STALE_AFTER_DAYS"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Scheduler.StaleAfterDays)
	assert.Equal(t, 7, cfg.Scheduler.HourlyBatchSize)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv("ENV_PATH", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("SEO_CONFIG_FILE", "")

	_, err := Load()
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := FromEnv()
	cfg.Scheduler.HourlyBatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.Providers.Timeout = 0
	assert.Error(t, cfg.Validate())
}
