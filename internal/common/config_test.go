package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5, cfg.Scraper.BatchLimit)
	assert.Equal(t, 1, cfg.Scraper.Concurrency)
	assert.True(t, cfg.Scheduler.Enabled)

	timeout, err := cfg.Scraper.GetAdapterTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)

	delay, err := cfg.Scraper.GetRequestDelay()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, delay)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propstream.toml")
	content := `
environment = "production"

[server]
port = 9090
host = "0.0.0.0"

[scraper]
batch_limit = 10
concurrency = 3
adapter_timeout = "90s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Scraper.BatchLimit)
	assert.Equal(t, 3, cfg.Scraper.Concurrency)

	timeout, err := cfg.Scraper.GetAdapterTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)

	// Untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.Schedule)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propstream.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\nhost = \"localhost\"\n"), 0644))

	t.Setenv("PROPSTREAM_SERVER_PORT", "7070")
	t.Setenv("PROPSTREAM_SCRAPER_CONCURRENCY", "8")
	t.Setenv("PROPSTREAM_MARKETPLACE_TOKEN", "env-token")
	t.Setenv("PROPSTREAM_PROXY_URL", "http://proxy.internal:3128")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scraper.Concurrency)
	assert.Equal(t, "env-token", cfg.Marketplace.APIToken)
	assert.Equal(t, "http://proxy.internal:3128", cfg.Proxy.URL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scraper.BatchLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Scraper.AdapterTimeout = "not a duration"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Environment = "staging"
	assert.Error(t, cfg.Validate())
}
