package config

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

	assert.Equal(t, "https://api.pushshift.io/reddit", cfg.Source.BaseURL)
	assert.Equal(t, "comment", cfg.Source.Endpoint)
	assert.Equal(t, uint32(1000), cfg.Source.PageSize)
	assert.Equal(t, 90*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 125000, cfg.Harvest.Target)
	assert.Equal(t, 10*time.Second, cfg.Harvest.Delay)
	assert.Equal(t, 60*time.Second, cfg.Harvest.MaxDelay)
	assert.Equal(t, 3, cfg.Harvest.EmptyRoundThreshold)
	assert.Contains(t, cfg.Harvest.SentinelAuthors, "[deleted]")
	assert.Contains(t, cfg.Harvest.SentinelAuthors, "AutoModerator")
	assert.True(t, cfg.Harvest.Anonymize)
	assert.Empty(t, cfg.Metrics.Address)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PSHARVEST_BASE_URL", "http://localhost:9000/reddit")
	t.Setenv("PSHARVEST_TARGET", "500")
	t.Setenv("PSHARVEST_SUBREDDITS", "golang, rust ,,python")
	t.Setenv("PSHARVEST_SNAPSHOT", "/tmp/out.csv")
	t.Setenv("PSHARVEST_TIMEOUT", "15s")
	t.Setenv("PSHARVEST_REQUESTS_PER_MINUTE", "30")
	t.Setenv("PSHARVEST_ACCESS_TOKEN", "tok")
	t.Setenv("PSHARVEST_METRICS_ADDR", ":9102")
	t.Setenv("PSHARVEST_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "http://localhost:9000/reddit", cfg.Source.BaseURL)
	assert.Equal(t, 500, cfg.Harvest.Target)
	assert.Equal(t, []string{"golang", "rust", "python"}, cfg.Harvest.Subreddits)
	assert.Equal(t, "/tmp/out.csv", cfg.Harvest.Snapshot)
	assert.Equal(t, 15*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "tok", cfg.Auth.AccessToken)
	assert.Equal(t, ":9102", cfg.Metrics.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsMalformedValues(t *testing.T) {
	t.Run("target", func(t *testing.T) {
		t.Setenv("PSHARVEST_TARGET", "lots")
		assert.Error(t, DefaultConfig().LoadFromEnv())
	})
	t.Run("timeout", func(t *testing.T) {
		t.Setenv("PSHARVEST_TIMEOUT", "soon")
		assert.Error(t, DefaultConfig().LoadFromEnv())
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
source:
  endpoint: submission
  page_size: 250
  after: 30d
harvest:
  target: 2000
  subreddits: [golang, rust]
  delay: 2s
  max_delay: 30s
  sentinel_authors: ["[deleted]"]
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "submission", cfg.Source.Endpoint)
	assert.Equal(t, uint32(250), cfg.Source.PageSize)
	assert.Equal(t, "30d", cfg.Source.After)
	assert.Equal(t, 2000, cfg.Harvest.Target)
	assert.Equal(t, []string{"golang", "rust"}, cfg.Harvest.Subreddits)
	assert.Equal(t, 2*time.Second, cfg.Harvest.Delay)
	assert.Equal(t, 30*time.Second, cfg.Harvest.MaxDelay)
	assert.Equal(t, []string{"[deleted]"}, cfg.Harvest.SentinelAuthors)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("harvest: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"page size too large", func(c *Config) { c.Source.PageSize = 1001 }, "page size"},
		{"page size zero", func(c *Config) { c.Source.PageSize = 0 }, "page size"},
		{"unknown endpoint", func(c *Config) { c.Source.Endpoint = "post" }, "unknown endpoint"},
		{"zero target", func(c *Config) { c.Harvest.Target = 0 }, "target"},
		{"bad subreddit", func(c *Config) { c.Harvest.Subreddits = []string{"go lang"} }, "invalid subreddit"},
		{"hyphenated subreddit", func(c *Config) { c.Harvest.Subreddits = []string{"ask-science_2"} }, ""},
		{"max below delay", func(c *Config) { c.Harvest.MaxDelay = time.Second }, "max delay"},
		{"unknown backoff", func(c *Config) { c.Harvest.Backoff = "linear" }, "backoff"},
		{"zero threshold", func(c *Config) { c.Harvest.EmptyRoundThreshold = 0 }, "threshold"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Harvest.Target = -1
	cfg.RateLimit.BurstSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
	assert.Contains(t, err.Error(), "burst size")
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Harvest.Subreddits = []string{"golang"}
	cfg.Auth.AccessToken = "secret"

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, []string{"golang"}, loaded.Harvest.Subreddits)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"target":       10,
		"subreddits":   []string{"golang"},
		"snapshot":     "out.csv",
		"delay":        time.Second,
		"no-anonymize": true,
		"timeout":      5 * time.Second,
		"endpoint":     "submission",
		"page-size":    uint32(100),
		"after":        "7d",
		"score":        uint32(5),
		"rate-limit":   120,
		"metrics-addr": ":9100",
		"log-level":    "error",
	})

	assert.Equal(t, 10, cfg.Harvest.Target)
	assert.Equal(t, []string{"golang"}, cfg.Harvest.Subreddits)
	assert.Equal(t, "out.csv", cfg.Harvest.Snapshot)
	assert.Equal(t, time.Second, cfg.Harvest.Delay)
	assert.False(t, cfg.Harvest.Anonymize)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "submission", cfg.Source.Endpoint)
	assert.Equal(t, uint32(100), cfg.Source.PageSize)
	assert.Equal(t, "7d", cfg.Source.After)
	assert.Equal(t, uint32(5), cfg.Source.ScoreThreshold)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, ":9100", cfg.Metrics.Address)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestMergeCommandLineFlagsIgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"target":       0,
		"snapshot":     "",
		"no-anonymize": false,
	})

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("harvest:\n  target: 100\n  snapshot: file.csv\n"), 0644))

	t.Setenv("PSHARVEST_TARGET", "200")

	cfg, err := Load(path, map[string]interface{}{"snapshot": "flag.csv"})
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Harvest.Target, "env beats file")
	assert.Equal(t, "flag.csv", cfg.Harvest.Snapshot, "flags beat file")
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  page_size: 5000\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
