package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "copilot", cfg.Generator.Provider)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://api.github.com/meta/public_keys/copilot_api", cfg.GitHub.KeysURL)
	assert.False(t, cfg.GitHub.InsecureSkipVerify)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
session:
  backend: redis
  ttl: 30m
  redis:
    addr: "redis.internal:6379"
    db: 2
github:
  issue_repo: "wackypm/ideas"
  issue_labels: ["prd", "wacky"]
rate_limit:
  rps: 2
  burst: 4
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "redis.internal:6379", cfg.Session.Redis.Addr)
	assert.Equal(t, 2, cfg.Session.Redis.DB)
	assert.Equal(t, "wackypm/ideas", cfg.GitHub.IssueRepo)
	assert.Equal(t, []string{"prd", "wacky"}, cfg.GitHub.IssueLabels)
	assert.Equal(t, 2.0, cfg.RateLimit.RPS)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched sections keep their defaults.
	assert.Equal(t, "copilot", cfg.Generator.Provider)
	assert.Equal(t, 9090, cfg.Observability.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
generator:
  provider: gemini
  api_key: "from-file"
`)
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("PORT", "4000")
	t.Setenv("SKIP_SIGNATURE_VERIFICATION", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Generator.APIKey)
	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.True(t, cfg.GitHub.InsecureSkipVerify)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "gemini requires api key",
			mutate:  func(c *Config) { c.Generator.Provider = "gemini" },
			wantErr: "api_key",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Generator.Provider = "palm" },
			wantErr: "unknown generator provider",
		},
		{
			name: "redis requires addr",
			mutate: func(c *Config) {
				c.Session.Backend = "redis"
				c.Session.Redis.Addr = ""
			},
			wantErr: "redis.addr",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Session.Backend = "dynamo" },
			wantErr: "unknown session backend",
		},
		{
			name: "rate limit burst",
			mutate: func(c *Config) {
				c.RateLimit.RPS = 1
				c.RateLimit.Burst = 0
			},
			wantErr: "burst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
