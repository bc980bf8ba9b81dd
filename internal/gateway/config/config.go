package config

import (
	"time"

	"golang-analyst-gateway/pkg/config"
)

// Gateway holds the chat gateway behavior configuration.
type Gateway struct {
	StrictMode          bool          `mapstructure:"strict_mode"`
	RateLimitRequests   int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow     time.Duration `mapstructure:"rate_limit_window"`
	SessionTimeout      time.Duration `mapstructure:"session_timeout"`
	SessionSweepSpec    string        `mapstructure:"session_sweep_spec"`
	MaxWarnings         int           `mapstructure:"max_warnings"`
	BlockDuration       time.Duration `mapstructure:"block_duration"`
	HistoryWindowTurns  int           `mapstructure:"history_window_turns"`
	MaxCompletionTokens int           `mapstructure:"max_completion_tokens"`
}

// OpenAI holds the configuration for the OpenAI API.
type OpenAI struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// AI selects which provider serves plain completions (ticker fallback,
// translations). The tool-calling chat model is always OpenAI.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Finnhub holds the configuration for the Finnhub market data API.
type Finnhub struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// ExchangeRate holds the configuration for the currency rate API.
type ExchangeRate struct {
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Qdrant holds the configuration for the document vector store.
type Qdrant struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

// News holds the configuration for the RSS market news feeds.
type News struct {
	Feeds           map[string]string `mapstructure:"feeds"`
	PrefetchSpec    string            `mapstructure:"prefetch_spec"`
	CacheTTL        time.Duration     `mapstructure:"cache_ttl"`
	ArticleFetchMax int               `mapstructure:"article_fetch_max"`
}

// Report holds configuration for report rendering.
type Report struct {
	// PDFFontPath points to a TTF with CJK coverage for PDF output.
	PDFFontPath string `mapstructure:"pdf_font_path"`
}

// Telegram holds configuration for the ops alert notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the gateway service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Gateway      Gateway         `mapstructure:"gateway"`
	OpenAI       OpenAI          `mapstructure:"openai"`
	Gemini       Gemini          `mapstructure:"gemini"`
	AI           AI              `mapstructure:"ai"`
	Finnhub      Finnhub         `mapstructure:"finnhub"`
	ExchangeRate ExchangeRate    `mapstructure:"exchange_rate"`
	Qdrant       Qdrant          `mapstructure:"qdrant"`
	News         News            `mapstructure:"news"`
	Report       Report          `mapstructure:"report"`
	Telegram     Telegram        `mapstructure:"telegram"`
}

// Load loads the gateway configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gateway.RateLimitRequests == 0 {
		c.Gateway.RateLimitRequests = 30
	}
	if c.Gateway.RateLimitWindow == 0 {
		c.Gateway.RateLimitWindow = time.Minute
	}
	if c.Gateway.SessionTimeout == 0 {
		c.Gateway.SessionTimeout = time.Hour
	}
	if c.Gateway.SessionSweepSpec == "" {
		c.Gateway.SessionSweepSpec = "*/10 * * * *"
	}
	if c.Gateway.MaxWarnings == 0 {
		c.Gateway.MaxWarnings = 3
	}
	if c.Gateway.BlockDuration == 0 {
		c.Gateway.BlockDuration = 10 * time.Minute
	}
	if c.Gateway.HistoryWindowTurns == 0 {
		c.Gateway.HistoryWindowTurns = 6
	}
	if c.Gateway.MaxCompletionTokens == 0 {
		c.Gateway.MaxCompletionTokens = 2000
	}
}
