package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/turnout-prep/internal/trend"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Email     EmailConfig     `yaml:"email" mapstructure:"email"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	ARIMA     ARIMAConfig     `yaml:"arima" mapstructure:"arima"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres target of the bulk loader.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// LedgerConfig configures the SQLite run ledger. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmailConfig configures the marketing email generator.
type EmailConfig struct {
	IntervalMs  int     `yaml:"interval_ms" mapstructure:"interval_ms"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	StoreName   string  `yaml:"store_name" mapstructure:"store_name"`
	// BreakerThreshold consecutive API failures stop further calls for
	// BreakerCooldownSecs.
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// RetryConfig configures retries of remote calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BatchConfig configures the per-entity worker pool.
type BatchConfig struct {
	// MaxWorkers of 0 means one worker per CPU.
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`
}

// ARIMAConfig bounds the auto-ARIMA order search.
type ARIMAConfig struct {
	MaxP    int `yaml:"max_p" mapstructure:"max_p"`
	MaxQ    int `yaml:"max_q" mapstructure:"max_q"`
	MaxD    int `yaml:"max_d" mapstructure:"max_d"`
	MaxIter int `yaml:"max_iter" mapstructure:"max_iter"`
}

// AutoConfig converts the section into the trend fitter's search bounds.
func (c ARIMAConfig) AutoConfig() trend.AutoConfig {
	return trend.AutoConfig{MaxP: c.MaxP, MaxQ: c.MaxQ, MaxD: c.MaxD, MaxIter: c.MaxIter}
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
	v.SetEnvPrefix("TURNOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := trend.DefaultAutoConfig()
	v.SetDefault("store.schema", "public")
	v.SetDefault("ledger.path", "turnout-runs.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("email.interval_ms", 1000)
	v.SetDefault("email.temperature", 0.7)
	v.SetDefault("email.store_name", "Wojciech Kiełbowicz & Co")
	v.SetDefault("email.breaker_threshold", 5)
	v.SetDefault("email.breaker_cooldown_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("batch.max_workers", 0)
	v.SetDefault("arima.max_p", def.MaxP)
	v.SetDefault("arima.max_q", def.MaxQ)
	v.SetDefault("arima.max_d", def.MaxD)
	v.SetDefault("arima.max_iter", def.MaxIter)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes are
// "backfill", "load" and "emails".
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "backfill":
		if c.Batch.MaxWorkers < 0 {
			problems = append(problems, "batch.max_workers must be >= 0")
		}
		if c.ARIMA.MaxP < 0 || c.ARIMA.MaxQ < 0 || c.ARIMA.MaxD < 0 {
			problems = append(problems, "arima orders must be >= 0")
		}
		if c.ARIMA.MaxIter <= 0 {
			problems = append(problems, "arima.max_iter must be > 0")
		}
	case "load":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.Schema == "" {
			problems = append(problems, "store.schema is required")
		}
	case "emails":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Anthropic.MaxTokens <= 0 {
			problems = append(problems, "anthropic.max_tokens must be > 0")
		}
		if c.Email.IntervalMs < 0 {
			problems = append(problems, "email.interval_ms must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
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
