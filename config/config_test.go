package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigWithRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfigWithRoot(dir)

	assert.Equal(t, filepath.Join(dir, "results"), cfg.ResultsDir)
	assert.Equal(t, filepath.Join(dir, "data", "quantlens.db"), cfg.DBPath)
	assert.Equal(t, ProviderPerplexity, cfg.LLMProvider)
	assert.Equal(t, 90, cfg.LookbackDays)
	assert.Equal(t, 330, cfg.ChartDays)
	assert.Equal(t, []int{20, 50, 100}, cfg.EMAPeriods)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "DeepSeek")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("LOOKBACK_DAYS", "30")
	t.Setenv("EMA_PERIODS", "10, 30")
	t.Setenv("SCREENSHOT_TIMEOUT", "15s")
	t.Setenv("CHROME_HEADLESS", "false")
	t.Setenv("CACHE_ENABLED", "not-a-bool")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderDeepSeek, cfg.LLMProvider)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, []int{10, 30}, cfg.EMAPeriods)
	assert.Equal(t, 15*time.Second, cfg.ScreenshotTimeout)
	assert.False(t, cfg.Headless)
	assert.True(t, cfg.CacheEnabled, "unparseable values keep the default")

	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
	assert.Equal(t, "deepseek-chat", cfg.ResolvedModel())
	assert.Equal(t, "https://api.deepseek.com", cfg.ResolvedBackendURL())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	fileCfg := DefaultConfigWithRoot(t.TempDir())
	fileCfg.LookbackDays = 45
	fileCfg.TradingViewChartID = "abc123"
	require.NoError(t, WriteFile(path, *fileCfg))

	t.Setenv("LOOKBACK_DAYS", "60")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.LookbackDays)
	assert.Equal(t, "abc123", cfg.TradingViewChartID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, err)
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteFileOmitsCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.PerplexityAPIKey = "pplx-secret"
	cfg.LongportAccessToken = "lp-secret"
	require.NoError(t, WriteFile(path, *cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "pplx-secret")
	assert.NotContains(t, string(data), "lp-secret")
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	created, err := InitFile(path)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = InitFile(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }},
		{"zero lookback", func(c *Config) { c.LookbackDays = 0 }},
		{"negative chart window", func(c *Config) { c.ChartDays = -1 }},
		{"no EMA periods", func(c *Config) { c.EMAPeriods = nil }},
		{"zero EMA period", func(c *Config) { c.EMAPeriods = []int{20, 0} }},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfigWithRoot(t.TempDir())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKeyMissing(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.LLMProvider = ProviderOpenAI

	_, err := cfg.APIKey()
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestBackendURLOverride(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	assert.Equal(t, "https://api.perplexity.ai", cfg.ResolvedBackendURL())
	assert.Equal(t, "sonar-pro", cfg.ResolvedModel())

	cfg.BackendURL = "http://localhost:8080/v1"
	assert.Equal(t, "http://localhost:8080/v1", cfg.ResolvedBackendURL())
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.ResultsDir, cfg.DataCacheDir, filepath.Dir(cfg.DBPath)} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
