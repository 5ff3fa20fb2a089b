package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Filter     FilterConfig     `yaml:"filter" mapstructure:"filter"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects the language model backend shared by query generation
// and contact parsing.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	QueryMaxTokens    int     `yaml:"query_max_tokens" mapstructure:"query_max_tokens"`
	ParseMaxTokens    int     `yaml:"parse_max_tokens" mapstructure:"parse_max_tokens"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds settings for OpenAI or any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SearchConfig selects the web search provider.
type SearchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	Limit       int    `yaml:"limit" mapstructure:"limit"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SerpAPIConfig holds SerpApi settings.
type SerpAPIConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	GoogleDomain string `yaml:"google_domain" mapstructure:"google_domain"`
	Country      string `yaml:"gl" mapstructure:"gl"`
	Language     string `yaml:"hl" mapstructure:"hl"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity Sonar settings for the perplexity search
// provider.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl scrape API settings.
type FirecrawlConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// ScrapeConfig configures page extraction. Enabled scrapers are tried in the
// order local, jina, firecrawl.
type ScrapeConfig struct {
	LocalEnabled     bool `yaml:"local_enabled" mapstructure:"local_enabled"`
	JinaEnabled      bool `yaml:"jina_enabled" mapstructure:"jina_enabled"`
	FirecrawlEnabled bool `yaml:"firecrawl_enabled" mapstructure:"firecrawl_enabled"`
	TimeoutSecs      int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int  `yaml:"max_retries" mapstructure:"max_retries"`
}

// FilterConfig points at an optional YAML file of URL filter lists.
type FilterConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// PipelineConfig configures a run.
type PipelineConfig struct {
	MaxQueries      int `yaml:"max_queries" mapstructure:"max_queries"`
	URLsPerQuery    int `yaml:"urls_per_query" mapstructure:"urls_per_query"`
	IntervalMS      int `yaml:"interval_ms" mapstructure:"interval_ms"`
	CallTimeoutSecs int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	MaxResults      int `yaml:"max_results" mapstructure:"max_results"`
	HistorySize     int `yaml:"history_size" mapstructure:"history_size"`
}

// AuthConfig maps users to API keys. Keys are the map values so that
// mixed-case keys survive viper's key lowercasing.
type AuthConfig struct {
	Users   map[string]string `yaml:"users" mapstructure:"users"`
	CLIUser string            `yaml:"cli_user" mapstructure:"cli_user"`
}

// APIKeys returns the key to user mapping used by the HTTP API.
func (a AuthConfig) APIKeys() map[string]string {
	out := make(map[string]string, len(a.Users))
	for user, key := range a.Users {
		if key != "" {
			out[key] = user
		}
	}
	return out
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownSecs   int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// SetDefaults registers every default value on v. Registering a default
// also makes the key visible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 2)
	v.SetDefault("llm.query_max_tokens", 300)
	v.SetDefault("llm.parse_max_tokens", 1000)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("search.provider", "serpapi")
	v.SetDefault("search.limit", 6)
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.google_domain", "google.com")
	v.SetDefault("serpapi.gl", "us")
	v.SetDefault("serpapi.hl", "en")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.timeout_ms", 20000)
	v.SetDefault("scrape.local_enabled", true)
	v.SetDefault("scrape.jina_enabled", true)
	v.SetDefault("scrape.firecrawl_enabled", false)
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.max_retries", 0)
	v.SetDefault("filter.file", "")
	v.SetDefault("pipeline.max_queries", 3)
	v.SetDefault("pipeline.urls_per_query", 1)
	v.SetDefault("pipeline.interval_ms", 2000)
	v.SetDefault("pipeline.call_timeout_secs", 45)
	v.SetDefault("pipeline.max_results", 10)
	v.SetDefault("pipeline.history_size", 10)
	v.SetDefault("auth.cli_user", "cli")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a command needs. mode is "find" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic", "":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "openai":
		if c.OpenAI.Key == "" {
			errs = append(errs, "openai.key is required")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}

	switch strings.ToLower(c.Search.Provider) {
	case "serpapi", "":
		if c.SerpAPI.Key == "" {
			errs = append(errs, "serpapi.key is required")
		}
	case "jina":
		if c.Jina.Key == "" {
			errs = append(errs, "jina.key is required")
		}
	case "perplexity":
		if c.Perplexity.Key == "" {
			errs = append(errs, "perplexity.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("search.provider %q is not supported", c.Search.Provider))
	}

	if !c.Scrape.LocalEnabled && !c.Scrape.JinaEnabled && !c.Scrape.FirecrawlEnabled {
		errs = append(errs, "scrape: at least one scraper must be enabled")
	}
	if c.Scrape.FirecrawlEnabled && c.Firecrawl.Key == "" {
		errs = append(errs, "firecrawl.key is required when scrape.firecrawl_enabled is set")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if len(c.Auth.APIKeys()) == 0 {
			errs = append(errs, "auth.users must define at least one api key")
		}
	case "find":
		if c.Auth.CLIUser == "" {
			errs = append(errs, "auth.cli_user is required")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
