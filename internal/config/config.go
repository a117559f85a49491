// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Copilot   CopilotConfig   `yaml:"copilot" mapstructure:"copilot"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Profiles  ProfilesConfig  `yaml:"profiles" mapstructure:"profiles"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CopilotConfig holds the agent endpoint settings.
type CopilotConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	EnvironmentID string `yaml:"environment_id" mapstructure:"environment_id"`
	AgentID       string `yaml:"agent_id" mapstructure:"agent_id"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds settings for the Anthropic-backed agent.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	System    string `yaml:"system" mapstructure:"system"`
}

// AuthConfig configures token acquisition.
type AuthConfig struct {
	// Mode is "static" (token taken from config/env) or "devicecode"
	// (interactive OAuth2 device-code flow with on-disk cache).
	Mode      string `yaml:"mode" mapstructure:"mode"`
	Token     string `yaml:"token" mapstructure:"token"`
	TenantID  string `yaml:"tenant_id" mapstructure:"tenant_id"`
	ClientID  string `yaml:"client_id" mapstructure:"client_id"`
	Scope     string `yaml:"scope" mapstructure:"scope"`
	CachePath string `yaml:"cache_path" mapstructure:"cache_path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	DelayMS     int `yaml:"delay_ms" mapstructure:"delay_ms"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
}

// Delay returns the inter-request pacing interval.
func (b BatchConfig) Delay() time.Duration {
	return time.Duration(b.DelayMS) * time.Millisecond
}

// StoreConfig configures the local run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the ask server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ProfilesConfig points at the backend profiles file.
type ProfilesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("COPILOTQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets and endpoints default to empty so AutomaticEnv can
	// bind them without a config file.
	v.SetDefault("copilot.base_url", "")
	v.SetDefault("copilot.environment_id", "")
	v.SetDefault("copilot.agent_id", "")
	v.SetDefault("copilot.timeout_secs", 120)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.system", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.tenant_id", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.cache_path", "")
	v.SetDefault("profiles.path", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("auth.mode", "static")
	v.SetDefault("auth.scope", "https://api.powerplatform.com/.default")
	v.SetDefault("batch.delay_ms", 1000)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.max_retries", 0)
	v.SetDefault("store.path", "copilot-qa.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		// A config file is optional; env and defaults are enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
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
