// Package config loads the agent configuration from a YAML file with
// environment variable fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full agent configuration.
type Config struct {
	Server        ServerConfig    `yaml:"server"`
	Observability ObsConfig       `yaml:"observability"`
	GitHub        GitHubConfig    `yaml:"github"`
	Generator     GeneratorConfig `yaml:"generator"`
	Session       SessionConfig   `yaml:"session"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// ServerConfig holds the extension API listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// ReadTimeout bounds reading the full request including the body.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds the whole response stream.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ObsConfig holds the metrics and health listener settings.
type ObsConfig struct {
	Port int `yaml:"port"`
}

// GitHubConfig holds GitHub API endpoints and the optional issue
// filing target.
type GitHubConfig struct {
	APIBase string `yaml:"api_base"`
	KeysURL string `yaml:"keys_url"`
	// InsecureSkipVerify disables request signature verification.
	// For local development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// IssueRepo is an "owner/repo" target for filing accepted PRDs as
	// issues. Empty disables issue filing.
	IssueRepo   string   `yaml:"issue_repo"`
	IssueLabels []string `yaml:"issue_labels"`
}

// GeneratorConfig selects and tunes the idea generator backend.
type GeneratorConfig struct {
	// Provider is "copilot" or "gemini".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	// APIKey is required for gemini; copilot uses the caller's token.
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig selects and tunes the session store backend.
type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	// SweepSchedule is a cron expression for the memory store's expiry
	// sweep. Ignored for redis, which expires keys natively.
	SweepSchedule string      `yaml:"sweep_schedule"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig bounds request rates per identity.
type RateLimitConfig struct {
	// RPS of 0 disables rate limiting.
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":3000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Observability: ObsConfig{Port: 9090},
		GitHub: GitHubConfig{
			APIBase: "https://api.github.com",
			KeysURL: "https://api.github.com/meta/public_keys/copilot_api",
		},
		Generator: GeneratorConfig{
			Provider: "copilot",
			Timeout:  60 * time.Second,
		},
		Session: SessionConfig{
			Backend:       "memory",
			TTL:           time.Hour,
			SweepSchedule: "@every 5m",
			Redis:         RedisConfig{Addr: "localhost:6379"},
		},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		LogLevel:  "info",
	}
}

// Load reads the configuration from a YAML file, layered over Default.
// An empty path returns the defaults with environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secrets and deploy-time knobs from the environment.
// The environment wins over the file for secrets so keys never need to
// live on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Session.Redis.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Session.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SKIP_SIGNATURE_VERIFICATION"); v != "" {
		if skip, err := strconv.ParseBool(v); err == nil {
			c.GitHub.InsecureSkipVerify = skip
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Generator.Provider {
	case "copilot":
	case "gemini":
		if c.Generator.APIKey == "" {
			return fmt.Errorf("generator.api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown generator provider: %q", c.Generator.Provider)
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session backend: %q", c.Session.Backend)
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive when rps is set")
	}

	return nil
}
