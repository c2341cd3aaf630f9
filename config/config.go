package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderPerplexity = "perplexity"
	ProviderDeepSeek   = "deepseek"
	ProviderOpenAI     = "openai"
)

// ErrNoCredentials is returned when the active LLM provider has no API key.
var ErrNoCredentials = errors.New("no API key configured for provider")

var providerDefaults = map[string]struct {
	model   string
	baseURL string
}{
	ProviderPerplexity: {model: "sonar-pro", baseURL: "https://api.perplexity.ai"},
	ProviderDeepSeek:   {model: "deepseek-chat", baseURL: "https://api.deepseek.com"},
	ProviderOpenAI:     {model: "gpt-4o-mini", baseURL: "https://api.openai.com/v1"},
}

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DBPath       string `json:"db_path"`

	LLMProvider string  `json:"llm_provider"`
	Model       string  `json:"model"`
	BackendURL  string  `json:"backend_url"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`

	// AI Model API Keys
	PerplexityAPIKey string `json:"-"`
	DeepSeekAPIKey   string `json:"-"`
	OpenAIAPIKey     string `json:"-"`

	// Longport API Configuration
	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`

	CacheEnabled bool          `json:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl"`
	Debug        bool          `json:"debug"`
	LogLevel     string        `json:"log_level"`
	LogFormat    string        `json:"log_format"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`

	// Analysis windows
	LookbackDays int   `json:"lookback_days"`
	ChartDays    int   `json:"chart_days"`
	EMAPeriods   []int `json:"ema_periods"`

	// Chart capture and OCR
	TradingViewChartID string        `json:"tradingview_chart_id"`
	ScreenshotTimeout  time.Duration `json:"screenshot_timeout"`
	Headless           bool          `json:"headless"`
	TesseractPath      string        `json:"tesseract_path"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	return DefaultConfigWithRoot(currentDir)
}

// DefaultConfigWithRoot builds the defaults with every directory under root.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		DBPath:       filepath.Join(root, "data", "quantlens.db"),

		LLMProvider: ProviderPerplexity,
		MaxTokens:   4000,
		Temperature: 0.2,

		CacheEnabled: true,
		CacheTTL:     6 * time.Hour,
		LogLevel:     "info",
		LogFormat:    "console",

		LookbackDays: 90,
		ChartDays:    330,
		EMAPeriods:   []int{20, 50, 100},

		ScreenshotTimeout: 60 * time.Second,
		Headless:          true,
		TesseractPath:     "tesseract",
	}
}

// Load builds the effective configuration: defaults, then the JSON config file when
// one exists at path, then .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadConfigFromFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("QUANTLENS_DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	if val := os.Getenv("PERPLEXITY_API_KEY"); val != "" {
		c.PerplexityAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			c.CacheTTL = ttl
		}
	}
	if val := os.Getenv("QUANTLENS_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}

	if val := os.Getenv("LOOKBACK_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LookbackDays = v
		}
	}
	if val := os.Getenv("CHART_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.ChartDays = v
		}
	}
	if val := os.Getenv("EMA_PERIODS"); val != "" {
		if periods, err := parsePeriods(val); err == nil {
			c.EMAPeriods = periods
		}
	}

	if val := os.Getenv("TRADINGVIEW_CHART_ID"); val != "" {
		c.TradingViewChartID = val
	}
	if val := os.Getenv("SCREENSHOT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ScreenshotTimeout = d
		}
	}
	if val := os.Getenv("CHROME_HEADLESS"); val != "" {
		if headless, err := strconv.ParseBool(val); err == nil {
			c.Headless = headless
		}
	}
	if val := os.Getenv("TESSERACT_PATH"); val != "" {
		c.TesseractPath = val
	}
}

func parsePeriods(val string) ([]int, error) {
	var periods []int
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse EMA period %q: %w", part, err)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func (c *Config) Validate() error {
	if _, ok := providerDefaults[c.LLMProvider]; !ok {
		return fmt.Errorf("unsupported llm provider %q", c.LLMProvider)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive, got %d", c.LookbackDays)
	}
	if c.ChartDays <= 0 {
		return fmt.Errorf("chart days must be positive, got %d", c.ChartDays)
	}
	if len(c.EMAPeriods) == 0 {
		return errors.New("at least one EMA period is required")
	}
	for _, p := range c.EMAPeriods {
		if p <= 0 {
			return fmt.Errorf("EMA period must be positive, got %d", p)
		}
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// APIKey returns the key for the active provider.
func (c *Config) APIKey() (string, error) {
	var key string
	switch c.LLMProvider {
	case ProviderPerplexity:
		key = c.PerplexityAPIKey
	case ProviderDeepSeek:
		key = c.DeepSeekAPIKey
	case ProviderOpenAI:
		key = c.OpenAIAPIKey
	}
	if key == "" {
		return "", fmt.Errorf("%w %s", ErrNoCredentials, c.LLMProvider)
	}
	return key, nil
}

// ResolvedModel returns the configured model or the provider default.
func (c *Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	return providerDefaults[c.LLMProvider].model
}

// ResolvedBackendURL returns the configured base URL or the provider default.
func (c *Config) ResolvedBackendURL() string {
	if c.BackendURL != "" {
		return c.BackendURL
	}
	return providerDefaults[c.LLMProvider].baseURL
}

// HasLongport reports whether Longport credentials are complete.
func (c *Config) HasLongport() bool {
	return c.LongportAppKey != "" && c.LongportAppSecret != "" && c.LongportAccessToken != ""
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ResultsDir, c.DataDir, c.DataCacheDir}
	if c.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.DBPath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
