// Package config loads the Fangio configuration through viper. Every value
// has a permissive default; a config file is optional and any key can be
// overridden with a FANGIO_* environment variable (dots become underscores,
// e.g. FANGIO_TOOL_TIMEOUT_MS for tool.timeout_ms).
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete Fangio configuration.
type Config struct {
	DataDir            string          `mapstructure:"data_dir"`
	ApprovalTTLMinutes int             `mapstructure:"approval_ttl_minutes"`
	PlanRateLimit      RateLimitConfig `mapstructure:"plan_rate_limit"`
	Tool               ToolConfig      `mapstructure:"tool"`
	Server             ServerConfig    `mapstructure:"server"`
	LLM                LLMConfig       `mapstructure:"llm"`
	Logging            LoggingConfig   `mapstructure:"logging"`
}

// RateLimitConfig bounds plan creation per client address.
type RateLimitConfig struct {
	// Max is the number of plan-creation requests allowed per window
	Max int `mapstructure:"max"`
	// WindowMs is the fixed window length in milliseconds
	WindowMs int `mapstructure:"window_ms"`
}

// ToolConfig bounds tool subprocess execution.
type ToolConfig struct {
	// TimeoutMs is the per-invocation subprocess timeout in milliseconds
	TimeoutMs int `mapstructure:"timeout_ms"`
	// MaxBufferBytes caps captured stdout/stderr per invocation
	MaxBufferBytes int `mapstructure:"max_buffer_bytes"`
	// AllowedPaths are filesystem roots filesystem.search may enter;
	// empty means the working directory only
	AllowedPaths []string `mapstructure:"allowed_paths"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// CORSOrigins is the allowed origin list; empty enables the
	// localhost development origins only
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig selects the plan-generation backend. An empty APIKey means demo
// mode with canned plans.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		DataDir:            "./.fangio",
		ApprovalTTLMinutes: 0,
		PlanRateLimit:      RateLimitConfig{Max: 30, WindowMs: 60000},
		Tool:               ToolConfig{TimeoutMs: 15000, MaxBufferBytes: 1 << 20},
		Server:             ServerConfig{Port: 3001},
		LLM:                LLMConfig{BaseURL: "https://models.github.ai/inference", Model: "openai/gpt-4o-mini"},
		Logging:            LoggingConfig{Level: "info"},
	}
}

// SetDefaults registers all defaults with viper so they apply even without
// a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("approval_ttl_minutes", defaults.ApprovalTTLMinutes)

	viper.SetDefault("plan_rate_limit.max", defaults.PlanRateLimit.Max)
	viper.SetDefault("plan_rate_limit.window_ms", defaults.PlanRateLimit.WindowMs)

	viper.SetDefault("tool.timeout_ms", defaults.Tool.TimeoutMs)
	viper.SetDefault("tool.max_buffer_bytes", defaults.Tool.MaxBufferBytes)
	viper.SetDefault("tool.allowed_paths", defaults.Tool.AllowedPaths)

	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)

	viper.SetDefault("llm.api_key", defaults.LLM.APIKey)
	viper.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	viper.SetDefault("llm.model", defaults.LLM.Model)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ApprovalTTL returns the configured approval time-to-live; zero disables
// expiry checking.
func (c *Config) ApprovalTTL() time.Duration {
	if c.ApprovalTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.ApprovalTTLMinutes) * time.Minute
}

// Window returns the plan-creation window length.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

// Timeout returns the subprocess timeout.
func (c *ToolConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fangio")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fangio"
	}
	return filepath.Join(home, ".config", "fangio")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
