// Package config loads server and CLI settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DECIDE_AI_MODEL.
const EnvPrefix = "DECIDE"

// Provider names accepted by ai.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderLangChain = "langchain"
	ProviderNone      = "none"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	AI        AIConfig        `mapstructure:"ai"`
	LangChain LangChainConfig `mapstructure:"langchain"`
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	DBPath         string   `mapstructure:"db_path"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider"`
	Disabled          bool          `mapstructure:"disabled"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Temperature       float64       `mapstructure:"temperature"`
	TopP              float64       `mapstructure:"top_p"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

type LangChainConfig struct {
	Backend         string `mapstructure:"backend"`
	Model           string `mapstructure:"model"`
	OllamaHost      string `mapstructure:"ollama_host"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EngineConfig struct {
	BatchParallelism int    `mapstructure:"batch_parallelism"`
	DefaultMode      string `mapstructure:"default_mode"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "2000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:1000", "http://127.0.0.1:1000"})
	v.SetDefault("server.db_path", filepath.Join("data", "decisions.db"))

	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.disabled", false)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.top_p", 0.9)
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.requests_per_minute", 0)
	v.SetDefault("ai.cache_ttl", 24*time.Hour)

	v.SetDefault("langchain.backend", "openai")
	v.SetDefault("langchain.model", "")
	v.SetDefault("langchain.ollama_host", "http://localhost:11434")
	v.SetDefault("langchain.anthropic_api_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("engine.batch_parallelism", 4)
	v.SetDefault("engine.default_mode", "local")
}

// legacyEnv maps keys to the unprefixed variable names the server has always read.
var legacyEnv = map[string]string{
	"ai.api_key":                  "OPENAI_API_KEY",
	"ai.model":                    "OPENAI_MODEL",
	"ai.base_url":                 "OPENAI_BASE_URL",
	"ai.temperature":              "OPENAI_TEMPERATURE",
	"ai.max_tokens":               "OPENAI_MAX_TOKENS",
	"ai.disabled":                 "DISABLE_AI",
	"server.port":                 "PORT",
	"langchain.anthropic_api_key": "ANTHROPIC_API_KEY",
	"langchain.ollama_host":       "OLLAMA_HOST",
}

// Load reads configuration. An empty path searches ./decide.yaml and
// ~/.config/decide/decide.yaml; a missing search-path file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("decide")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "decide"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		logrus.WithField("path", used).Debug("loaded config file")
	}
	return cfg, cfg.Validate()
}

// Validate normalises enum fields and rejects unknown values.
func (c *Config) Validate() error {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.Disabled {
		c.AI.Provider = ProviderNone
	}
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderLangChain, ProviderNone:
	case "":
		c.AI.Provider = ProviderNone
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Engine.BatchParallelism <= 0 {
		c.Engine.BatchParallelism = 1
	}
	return nil
}

// ConfigureLogging applies the log level and formatter to the standard logrus logger.
func ConfigureLogging(cfg LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
