package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Edgar      EdgarConfig      `yaml:"edgar" mapstructure:"edgar"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	Model      string `yaml:"model" mapstructure:"model"`
	PlanModel  string `yaml:"plan_model" mapstructure:"plan_model"`
	AuditModel string `yaml:"audit_model" mapstructure:"audit_model"`
	MaxTokens  int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// EdgarConfig holds SEC EDGAR connector settings.
type EdgarConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PipelineConfig configures the research pipeline orchestrator.
type PipelineConfig struct {
	SearchRetries        int     `yaml:"search_retries" mapstructure:"search_retries"`
	SearchBackoffSecs    float64 `yaml:"search_backoff_secs" mapstructure:"search_backoff_secs"`
	CallTimeoutSecs      int     `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	MaxConcurrentSearch  int     `yaml:"max_concurrent_searches" mapstructure:"max_concurrent_searches"`
	BalanceTolerancePct  float64 `yaml:"balance_tolerance_pct" mapstructure:"balance_tolerance_pct"`
	SpecialistMaxQueries int     `yaml:"specialist_max_queries" mapstructure:"specialist_max_queries"`
}

// CallTimeout returns the per-external-call timeout as a Duration.
func (p PipelineConfig) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSecs) * time.Second
}

// SearchBackoff returns the base retry delay as a Duration.
func (p PipelineConfig) SearchBackoff() time.Duration {
	return time.Duration(p.SearchBackoffSecs * float64(time.Second))
}

// ServerConfig configures the HTTP server (serve command).
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and RESEARCH_-prefixed
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "research.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.plan_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.audit_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("edgar.base_url", "https://data.sec.gov")
	v.SetDefault("edgar.user_agent", "Sells Advisors blake@sellsadvisors.com")
	v.SetDefault("edgar.rate_limit", 10.0)
	v.SetDefault("pipeline.search_retries", 3)
	v.SetDefault("pipeline.search_backoff_secs", 2.0)
	v.SetDefault("pipeline.call_timeout_secs", 120)
	v.SetDefault("pipeline.max_concurrent_searches", 5)
	v.SetDefault("pipeline.balance_tolerance_pct", 0.1)
	v.SetDefault("pipeline.specialist_max_queries", 2)

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
