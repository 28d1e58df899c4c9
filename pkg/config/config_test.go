package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Search.CacheSize)
	assert.Equal(t, time.Hour, cfg.Search.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Search.ReloadInterval)
	assert.Equal(t, 5.0, cfg.Search.VectorScoreMultiplier)
	assert.Equal(t, 50, cfg.Search.MaxResultsPerBranch)
	assert.Equal(t, 768, cfg.Encoder.Dimensions)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
search:
  cacheSize: 50
  branchTimeout: 2s
  vectorScoreMultiplier: 3.5
encoder:
  dimensions: 384
  model: all-MiniLM-L6-v2
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Search.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Search.BranchTimeout)
	assert.Equal(t, 3.5, cfg.Search.VectorScoreMultiplier)
	assert.Equal(t, 384, cfg.Encoder.Dimensions)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.Encoder.Model)
	// Untouched sections keep defaults.
	assert.Equal(t, time.Hour, cfg.Search.CacheTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DS_ENCODER_MODEL", "env-model")
	t.Setenv("DS_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-model", cfg.Encoder.Model)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cache size", func(c *Config) { c.Search.CacheSize = 0 }},
		{"negative ttl", func(c *Config) { c.Search.CacheTTL = -time.Second }},
		{"zero branch timeout", func(c *Config) { c.Search.BranchTimeout = 0 }},
		{"zero multiplier", func(c *Config) { c.Search.VectorScoreMultiplier = 0 }},
		{"topk above max", func(c *Config) { c.Search.DefaultTopK = c.Search.MaxTopK + 1 }},
		{"zero dimensions", func(c *Config) { c.Encoder.Dimensions = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
