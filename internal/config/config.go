package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "NEWSANALYST_CONFIG"
	logLevelEnv       = "NEWSANALYST_LOG_LEVEL"
	openAIKeyEnv      = "OPENAI_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	groqKeyEnv        = "GROQ_API_KEY"
	tavilyKeyEnv      = "TAVILY_API_KEY"
	redisAddrEnv      = "REDIS_ADDR"
	databaseDSNEnv    = "DATABASE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Inference providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderHTTP      = "http"
	ProviderNone      = "none"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Inference     InferenceConfig    `yaml:"inference"`
	Search        SearchConfig       `yaml:"search"`
	Cache         CacheConfig        `yaml:"cache"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Notifications NotificationConfig `yaml:"notifications"`
	Schedule      ScheduleConfig     `yaml:"schedule"`
	Topics        []string           `yaml:"topics"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PipelineConfig mirrors the orchestrator run settings.
type PipelineConfig struct {
	MaxArticles      int           `yaml:"maxArticles"`
	RetryLimit       *int          `yaml:"retryLimit"`
	PerCallTimeout   time.Duration `yaml:"perCallTimeout"`
	ConcurrencyLimit int           `yaml:"concurrencyLimit"`
	MaxQueries       int           `yaml:"maxQueries"`
	EnabledStages    []string      `yaml:"enabledStages"`
	Backoff          BackoffConfig `yaml:"backoff"`
}

// BackoffConfig is the retry delay schedule.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
}

// InferenceConfig defines how to reach the language model.
type InferenceConfig struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"apiKey"`
	BaseURL      string  `yaml:"baseUrl"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"maxTokens"`
	StrictSchema bool    `yaml:"strictSchema"`
}

// SearchConfig lists search providers in fallback order.
type SearchConfig struct {
	Providers      []string `yaml:"providers"`
	TavilyAPIKey   string   `yaml:"tavilyApiKey"`
	TavilyDepth    string   `yaml:"tavilyDepth"`
	IncludeDomains []string `yaml:"includeDomains"`
	RatePerSecond  float64  `yaml:"ratePerSecond"`
	Burst          int      `yaml:"burst"`
}

// CacheConfig enables the Redis search cache when Addr is set.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ArchiveConfig enables the run archive when DSN is set.
type ArchiveConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ScheduleConfig defines how often configured topics are re-analyzed.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if fileCfg, err := ReadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// ReadFile parses a YAML file without applying defaults.
func ReadFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, err
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, err
	}
	return fileCfg, nil
}

// LoadFile is Load with an explicit path taking the place of NEWSANALYST_CONFIG.
func LoadFile(path string) (Config, error) {
	fileCfg, err := ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := mergeConfig(defaultConfig(), fileCfg)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if c.Inference.APIKey == "" {
		c.Inference.APIKey = os.Getenv(inferenceKeyEnv(c.Inference.Provider))
	}

	if v := os.Getenv(tavilyKeyEnv); v != "" {
		c.Search.TavilyAPIKey = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.Addr = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Archive.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func inferenceKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return openAIKeyEnv
	case ProviderAnthropic:
		return anthropicKeyEnv
	case ProviderGroq:
		return groqKeyEnv
	default:
		return ""
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	base.Pipeline = mergePipeline(base.Pipeline, override.Pipeline)

	if override.Inference.Provider != "" {
		base.Inference.Provider = override.Inference.Provider
		if override.Inference.Model == "" {
			base.Inference.Model = defaultModel(override.Inference.Provider)
		}
	}
	if override.Inference.Model != "" {
		base.Inference.Model = override.Inference.Model
	}
	if override.Inference.APIKey != "" {
		base.Inference.APIKey = override.Inference.APIKey
	}
	if override.Inference.BaseURL != "" {
		base.Inference.BaseURL = override.Inference.BaseURL
	}
	if override.Inference.Temperature != 0 {
		base.Inference.Temperature = override.Inference.Temperature
	}
	if override.Inference.MaxTokens != 0 {
		base.Inference.MaxTokens = override.Inference.MaxTokens
	}
	if override.Inference.StrictSchema {
		base.Inference.StrictSchema = true
	}

	if len(override.Search.Providers) > 0 {
		base.Search.Providers = override.Search.Providers
	}
	if override.Search.TavilyAPIKey != "" {
		base.Search.TavilyAPIKey = override.Search.TavilyAPIKey
	}
	if override.Search.TavilyDepth != "" {
		base.Search.TavilyDepth = override.Search.TavilyDepth
	}
	if len(override.Search.IncludeDomains) > 0 {
		base.Search.IncludeDomains = override.Search.IncludeDomains
	}
	if override.Search.RatePerSecond != 0 {
		base.Search.RatePerSecond = override.Search.RatePerSecond
	}
	if override.Search.Burst != 0 {
		base.Search.Burst = override.Search.Burst
	}

	if override.Cache.Addr != "" {
		base.Cache = override.Cache
		if base.Cache.TTL == 0 {
			base.Cache.TTL = defaultConfig().Cache.TTL
		}
	}

	if override.Archive.DSN != "" {
		base.Archive.DSN = override.Archive.DSN
	}
	if override.Archive.Driver != "" {
		base.Archive.Driver = override.Archive.Driver
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIBase != "" {
		base.Notifications.Telegram.APIBase = override.Notifications.Telegram.APIBase
	}

	if override.Schedule.Interval != 0 {
		base.Schedule.Interval = override.Schedule.Interval
	}

	if len(override.Topics) > 0 {
		base.Topics = override.Topics
	}

	return base
}

func mergePipeline(base, override PipelineConfig) PipelineConfig {
	if override.MaxArticles != 0 {
		base.MaxArticles = override.MaxArticles
	}
	if override.RetryLimit != nil {
		limit := *override.RetryLimit
		base.RetryLimit = &limit
	}
	if override.PerCallTimeout != 0 {
		base.PerCallTimeout = override.PerCallTimeout
	}
	if override.ConcurrencyLimit != 0 {
		base.ConcurrencyLimit = override.ConcurrencyLimit
	}
	if override.MaxQueries != 0 {
		base.MaxQueries = override.MaxQueries
	}
	if override.EnabledStages != nil {
		base.EnabledStages = override.EnabledStages
	}
	if override.Backoff.Initial != 0 {
		base.Backoff.Initial = override.Backoff.Initial
	}
	if override.Backoff.Max != 0 {
		base.Backoff.Max = override.Backoff.Max
	}
	if override.Backoff.Multiplier != 0 {
		base.Backoff.Multiplier = override.Backoff.Multiplier
	}
	return base
}

func defaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGroq:
		return "gemma2-9b-it"
	default:
		return ""
	}
}

func defaultConfig() Config {
	retryLimit := 2
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			MaxArticles:      10,
			RetryLimit:       &retryLimit,
			PerCallTimeout:   30 * time.Second,
			ConcurrencyLimit: 3,
			MaxQueries:       3,
			Backoff: BackoffConfig{
				Initial:    500 * time.Millisecond,
				Max:        8 * time.Second,
				Multiplier: 2,
			},
		},
		Inference: InferenceConfig{
			Provider:    ProviderGroq,
			Model:       defaultModel(ProviderGroq),
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Search: SearchConfig{
			Providers:      []string{"tavily", "duckduckgo"},
			TavilyDepth:    "advanced",
			IncludeDomains: []string{"bbc.com", "reuters.com", "cnn.com", "npr.org"},
			RatePerSecond:  2,
			Burst:          2,
		},
		Cache:    CacheConfig{TTL: time.Hour},
		Archive:  ArchiveConfig{Driver: "postgres"},
		Schedule: ScheduleConfig{Interval: 24 * time.Hour},
	}
}
