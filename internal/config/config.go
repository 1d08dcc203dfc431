package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Matching  MatchingConfig  `yaml:"matching" mapstructure:"matching"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings for the comparison oracle.
type AnthropicConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
}

// MatchingConfig configures the reconciliation pipeline.
type MatchingConfig struct {
	POFuzzyThreshold  float64 `yaml:"po_fuzzy_threshold" mapstructure:"po_fuzzy_threshold"`
	BOLFuzzyThreshold float64 `yaml:"bol_fuzzy_threshold" mapstructure:"bol_fuzzy_threshold"`
	MaxCandidates     int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	FuzzyFallback     bool    `yaml:"fuzzy_fallback" mapstructure:"fuzzy_fallback"`
}

// WorkerConfig configures the background match dispatcher.
type WorkerConfig struct {
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("FREIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "freightmatch.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.rps", 2.0)
	v.SetDefault("matching.po_fuzzy_threshold", 0.7)
	v.SetDefault("matching.bol_fuzzy_threshold", 0.2)
	v.SetDefault("matching.max_candidates", 10)
	v.SetDefault("matching.fuzzy_fallback", false)
	v.SetDefault("worker.poll_interval_secs", 2)
	v.SetDefault("worker.concurrency", 4)

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

// Validate checks that the configuration is complete for the given run
// mode. Modes: "serve" (API + worker), "match" (one-shot reconciliation),
// "migrate" (schema only), "export" (report generation).
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required when store.driver is postgres")
		}
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
	}
	requireOracle := func() {
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Anthropic.Model == "" {
			missing = append(missing, "anthropic.model is required")
		}
	}

	switch mode {
	case "serve":
		requireStore()
		requireOracle()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
		if c.Worker.Concurrency < 1 || c.Worker.Concurrency > 32 {
			missing = append(missing, "worker.concurrency must be between 1 and 32")
		}
		if c.Worker.PollIntervalSecs < 1 {
			missing = append(missing, "worker.poll_interval_secs must be >= 1")
		}
	case "match":
		requireStore()
		requireOracle()
	case "migrate", "export":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" || mode == "match" {
		if c.Matching.POFuzzyThreshold < 0 || c.Matching.POFuzzyThreshold > 1 {
			missing = append(missing, "matching.po_fuzzy_threshold must be between 0 and 1")
		}
		if c.Matching.BOLFuzzyThreshold < 0 || c.Matching.BOLFuzzyThreshold > 1 {
			missing = append(missing, "matching.bol_fuzzy_threshold must be between 0 and 1")
		}
		if c.Matching.MaxCandidates < 1 {
			missing = append(missing, "matching.max_candidates must be >= 1")
		}
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
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
