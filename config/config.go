package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider            string        `yaml:"provider"`
	BaseURL             string        `yaml:"base_url"`
	Model               string        `yaml:"model"`
	FallbackModel       string        `yaml:"fallback_model"`
	APIKey              string        `yaml:"-"`
	Temperature         float64       `yaml:"temperature"`
	MaxTokens           int           `yaml:"max_tokens"`
	ApplyChunking       bool          `yaml:"apply_chunking"`
	ChunkTokenThreshold int           `yaml:"chunk_token_threshold"`
	OverlapRate         float64       `yaml:"overlap_rate"`
	Concurrency         int           `yaml:"concurrency"`
	MaxRetries          int           `yaml:"max_retries"`
	RetryBackoff        time.Duration `yaml:"retry_backoff"`
	Timeout             time.Duration `yaml:"timeout"`
}

type DBConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"-"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	CommitMode string `yaml:"commit_mode"`
}

// DSN returns URL when set, otherwise builds one from the individual fields.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type Config struct {
	Variant          string        `yaml:"variant"`
	BaseURL          string        `yaml:"base_url"`
	CSSSelector      string        `yaml:"css_selector"`
	NoResultsMarker  string        `yaml:"no_results_marker"`
	PageParam        string        `yaml:"page_param"`
	MaxPages         int           `yaml:"max_pages"`
	PageDelay        time.Duration `yaml:"page_delay"`
	EmptyPageRetries int           `yaml:"empty_page_retries"`
	Fetcher          string        `yaml:"fetcher"`
	Headless         bool          `yaml:"headless"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	RenderWait       time.Duration `yaml:"render_wait"`
	SessionName      string        `yaml:"session_name"`
	CSVPath          string        `yaml:"csv_path"`
	LogLevel         string        `yaml:"log_level"`
	LLM              LLMConfig     `yaml:"llm"`
	DB               DBConfig      `yaml:"db"`
}

// providerBaseURLs are the OpenAI-compatible endpoints used when llm.base_url
// is not set.
var providerBaseURLs = map[string]string{
	"groq":        "https://api.groq.com/openai/v1",
	"openai":      "https://api.openai.com/v1",
	"openrouter":  "https://openrouter.ai/api/v1",
	"huggingface": "https://router.huggingface.co/v1",
	"ollama":      "http://localhost:11434/v1",
}

func DefaultConfig() *Config {
	return &Config{
		Variant:          "vehicle",
		BaseURL:          "https://riyasewana.com/search/cars/price-500000-1000000",
		CSSSelector:      "[class^='item round']",
		NoResultsMarker:  "No results found",
		PageParam:        "page",
		MaxPages:         0,
		PageDelay:        3 * time.Second,
		EmptyPageRetries: 0,
		Fetcher:          "chromedp",
		Headless:         true,
		RequestTimeout:   60 * time.Second,
		RenderWait:       2 * time.Second,
		SessionName:      "vehicle_crawler_session",
		CSVPath:          "output/complete_vehicle_details.csv",
		LogLevel:         "info",
		LLM: LLMConfig{
			Provider:            "groq",
			Model:               "deepseek-r1-distill-llama-70b",
			Temperature:         0.1,
			MaxTokens:           4096,
			ApplyChunking:       true,
			ChunkTokenThreshold: 2048,
			OverlapRate:         0.1,
			Concurrency:         2,
			MaxRetries:          3,
			RetryBackoff:        2 * time.Second,
			Timeout:             120 * time.Second,
		},
		DB: DBConfig{
			Enabled:    false,
			Host:       "localhost",
			Port:       5432,
			User:       "postgres",
			Password:   "postgres",
			Name:       "classifieds",
			SSLMode:    "disable",
			CommitMode: "record",
		},
	}
}

// LoadConfig builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then the .env file at envPath (missing file is
// fine), then environment variables.
func LoadConfig(path, envPath string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not load env file %s: %w", envPath, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnvAsString("SCRAPER_BASE_URL", c.BaseURL)
	c.Variant = getEnvAsString("SCRAPER_VARIANT", c.Variant)
	c.CSVPath = getEnvAsString("SCRAPER_CSV_PATH", c.CSVPath)
	c.MaxPages = getEnvAsInt("SCRAPER_MAX_PAGES", c.MaxPages)
	c.Headless = getEnvAsBool("SCRAPER_HEADLESS", c.Headless)
	c.LogLevel = getEnvAsString("LOG_LEVEL", c.LogLevel)

	c.LLM.Provider = getEnvAsString("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.BaseURL = getEnvAsString("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnvAsString("LLM_MODEL", c.LLM.Model)
	for _, key := range []string{"LLM_API_KEY", "GROQ_API_KEY", "groq_api_key", "HF_KEY", "hf_key"} {
		if v := os.Getenv(key); v != "" {
			c.LLM.APIKey = v
			break
		}
	}

	c.DB.URL = getEnvAsString("DATABASE_URL", c.DB.URL)
	c.DB.Enabled = getEnvAsBool("DB_ENABLED", c.DB.Enabled)
	c.DB.Host = getEnvAsString("DB_HOST", c.DB.Host)
	c.DB.Port = getEnvAsInt("DB_PORT", c.DB.Port)
	c.DB.User = getEnvAsString("DB_USER", c.DB.User)
	c.DB.Password = getEnvAsString("DB_PASSWORD", c.DB.Password)
	c.DB.Name = getEnvAsString("DB_NAME", c.DB.Name)
	c.DB.SSLMode = getEnvAsString("DB_SSLMODE", c.DB.SSLMode)
}

// Endpoint returns BaseURL, or the provider's endpoint when BaseURL is empty.
func (c LLMConfig) Endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return providerBaseURLs[strings.ToLower(strings.TrimSpace(c.Provider))]
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	switch c.Variant {
	case "vehicle", "venue":
	default:
		return fmt.Errorf("unknown variant %q", c.Variant)
	}
	switch c.Fetcher {
	case "chromedp", "colly":
	default:
		return fmt.Errorf("unknown fetcher %q", c.Fetcher)
	}
	switch c.DB.CommitMode {
	case "record", "batch":
	default:
		return fmt.Errorf("unknown db commit_mode %q", c.DB.CommitMode)
	}
	if c.LLM.Endpoint() == "" {
		return fmt.Errorf("llm.base_url is required for provider %q", c.LLM.Provider)
	}
	if c.EmptyPageRetries < 0 {
		return errors.New("empty_page_retries must not be negative")
	}
	if c.MaxPages < 0 {
		return errors.New("max_pages must not be negative")
	}
	if c.LLM.OverlapRate < 0 || c.LLM.OverlapRate >= 1 {
		return fmt.Errorf("llm overlap_rate %.2f out of range [0, 1)", c.LLM.OverlapRate)
	}
	return nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
