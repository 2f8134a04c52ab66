package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)

	// Classifier defaults
	assert.Equal(t, "http://localhost:11434", cfg.Classifier.Endpoint)
	assert.Equal(t, "qwen3:0.6b", cfg.Classifier.Model)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 512, cfg.Classifier.CacheSize)
	assert.False(t, cfg.Classifier.FallbackOnly)

	// Embeddings defaults (static works offline with zero setup)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, 256, cfg.Embeddings.Dimensions)
	assert.Equal(t, 10*time.Second, cfg.Embeddings.Timeout)

	// Cache defaults
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 0.92, cfg.Cache.Tier3Threshold)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)

	// Search defaults
	assert.Equal(t, float64(10), cfg.Search.ExactScore)
	assert.Equal(t, float64(5), cfg.Search.EntityTagScore)
	assert.Equal(t, float64(3), cfg.Search.EntityMentionScore)
	assert.Equal(t, 0.3, cfg.Search.SemanticThreshold)
	assert.Equal(t, 20, cfg.Search.MaxResults)

	// Assembly defaults
	assert.Equal(t, 2000, cfg.Assembly.TokenBudget)

	// Storage defaults
	assert.Contains(t, cfg.Storage.Path, "memory.db")
	assert.Equal(t, 64, cfg.Storage.CacheSizeMB)

	// Server defaults
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1, cfg.Version)
}

// isolateUserConfig points the user config lookup at an empty directory so
// a developer's real ~/.config/recall/config.yaml cannot leak into tests.
func isolateUserConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	// Given: an empty directory with no config file
	isolateUserConfig(t)
	tmpDir := t.TempDir()

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: defaults are applied
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, 2000, cfg.Assembly.TokenBudget)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	isolateUserConfig(t)
	tmpDir := t.TempDir()
	configYAML := `
version: 1
cache:
  max_entries: 50
  tier3_threshold: 0.95
assembly:
  token_budget: 500
`
	err := os.WriteFile(filepath.Join(tmpDir, ".recall.yaml"), []byte(configYAML), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.Equal(t, 0.95, cfg.Cache.Tier3Threshold)
	assert.Equal(t, 500, cfg.Assembly.TokenBudget)
	// Untouched sections keep their defaults.
	assert.Equal(t, "qwen3:0.6b", cfg.Classifier.Model)
}

func TestLoad_YmlExtensionFallback(t *testing.T) {
	isolateUserConfig(t)
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, ".recall.yml"), []byte("assembly:\n  token_budget: 750\n"), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 750, cfg.Assembly.TokenBudget)
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	isolateUserConfig(t)
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, ".recall.yaml"), []byte("cache: [not a map"), 0o644)
	require.NoError(t, err)

	_, err = Load(tmpDir)

	assert.Error(t, err)
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	isolateUserConfig(t)
	tmpDir := t.TempDir()
	configYAML := "assembly:\n  token_budget: 500\n"
	err := os.WriteFile(filepath.Join(tmpDir, ".recall.yaml"), []byte(configYAML), 0o644)
	require.NoError(t, err)

	t.Setenv("RECALL_TOKEN_BUDGET", "1234")
	t.Setenv("RECALL_EMBEDDINGS_PROVIDER", "none")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Assembly.TokenBudget)
	assert.Equal(t, "none", cfg.Embeddings.Provider)
}

func TestLoad_InvalidEnvValueIgnored(t *testing.T) {
	isolateUserConfig(t)
	tmpDir := t.TempDir()
	t.Setenv("RECALL_CACHE_TIER3_THRESHOLD", "not-a-number")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 0.92, cfg.Cache.Tier3Threshold)
}

func TestValidate_RejectsBadProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "quantum"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.provider")
}

func TestValidate_HTTPProviderRequiresEndpoint(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "http"
	cfg.Embeddings.Endpoint = ""

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.endpoint")
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "tier3 threshold above 1",
			mutate:  func(c *Config) { c.Cache.Tier3Threshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "tier3 threshold zero",
			mutate:  func(c *Config) { c.Cache.Tier3Threshold = 0 },
			wantErr: true,
		},
		{
			name:    "semantic threshold negative",
			mutate:  func(c *Config) { c.Search.SemanticThreshold = -0.1 },
			wantErr: true,
		},
		{
			name:    "token budget zero",
			mutate:  func(c *Config) { c.Assembly.TokenBudget = 0 },
			wantErr: true,
		},
		{
			name:    "negative search score",
			mutate:  func(c *Config) { c.Search.ExactScore = -1 },
			wantErr: true,
		},
		{
			name:    "bad transport",
			mutate:  func(c *Config) { c.Server.Transport = "http" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".recall.yaml")

	cfg := NewConfig()
	cfg.Cache.MaxEntries = 77
	require.NoError(t, cfg.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, 77, loaded.Cache.MaxEntries)
}
