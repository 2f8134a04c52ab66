// Package config loads and validates recall configuration.
//
// Configuration is applied in order of increasing precedence:
// hardcoded defaults, user config (~/.config/recall/config.yaml),
// project config (.recall.yaml), then RECALL_* environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete recall configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Assembly   AssemblyConfig   `yaml:"assembly" json:"assembly"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// ClassifierConfig configures the external intent classification service.
type ClassifierConfig struct {
	// Endpoint is the completion API endpoint (default: http://localhost:11434).
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Model is the model used for classification (default: qwen3:0.6b).
	Model string `yaml:"model" json:"model"`
	// Timeout bounds each classification call. On timeout the heuristic
	// extractor takes over for that query.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize is the number of classification results kept in the LRU.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// FallbackOnly skips the service entirely and uses the heuristic
	// extractor for every query (default: false).
	FallbackOnly bool `yaml:"fallback_only" json:"fallback_only"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "static" (offline, deterministic),
	// "http" (remote embedding service), or "none" (disables the semantic
	// search branch and Tier-3 cache).
	Provider string `yaml:"provider" json:"provider"`
	// Endpoint is the embedding API endpoint (provider "http").
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Model is the embedding model name (provider "http").
	Model string `yaml:"model" json:"model"`
	// APIKeyEnv names the environment variable holding the API key, if the
	// endpoint requires one. The key itself never appears in config files.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
	// Dimensions is the embedding vector size (default: 256 for static).
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// Timeout bounds each embedding call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize is the number of embeddings kept in the LRU.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// CacheConfig configures the semantic query cache.
type CacheConfig struct {
	// MaxEntries caps the number of cached query results.
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
	// Tier3Threshold is the minimum cosine similarity for an
	// embedding-based cache hit.
	Tier3Threshold float64 `yaml:"tier3_threshold" json:"tier3_threshold"`
	// TTL expires entries after the given duration. Zero disables expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// SearchConfig configures the hybrid search scoring.
type SearchConfig struct {
	// ExactScore is the score assigned to a substring match.
	ExactScore float64 `yaml:"exact_score" json:"exact_score"`
	// EntityTagScore is added per matching entity tag.
	EntityTagScore float64 `yaml:"entity_tag_score" json:"entity_tag_score"`
	// EntityMentionScore is added per in-text entity occurrence.
	EntityMentionScore float64 `yaml:"entity_mention_score" json:"entity_mention_score"`
	// SemanticThreshold is the minimum cosine similarity for a chunk to
	// appear in the semantic result set.
	SemanticThreshold float64 `yaml:"semantic_threshold" json:"semantic_threshold"`
	// MaxResults caps each strategy's result set.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// AssemblyConfig configures context assembly.
type AssemblyConfig struct {
	// TokenBudget is the default maximum token count for the assembled
	// context block. Callers may override it per query.
	TokenBudget int `yaml:"token_budget" json:"token_budget"`
}

// StorageConfig configures the chunk/entity store.
type StorageConfig struct {
	// Path is the SQLite database file (default: ~/.recall/memory.db).
	Path string `yaml:"path" json:"path"`
	// CacheSizeMB is the SQLite page cache size in MB.
	CacheSizeMB int `yaml:"cache_size_mb" json:"cache_size_mb"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Classifier: ClassifierConfig{
			Endpoint:     "http://localhost:11434",
			Model:        "qwen3:0.6b",
			Timeout:      5 * time.Second,
			CacheSize:    512,
			FallbackOnly: false,
		},
		Embeddings: EmbeddingsConfig{
			// Static works offline with zero setup; "http" is opt-in.
			Provider:   "static",
			Endpoint:   "",
			Model:      "",
			APIKeyEnv:  "",
			Dimensions: 256,
			Timeout:    10 * time.Second,
			CacheSize:  1024,
		},
		Cache: CacheConfig{
			MaxEntries:     1000,
			Tier3Threshold: 0.92,
			TTL:            0,
		},
		Search: SearchConfig{
			ExactScore:         10,
			EntityTagScore:     5,
			EntityMentionScore: 3,
			SemanticThreshold:  0.3,
			MaxResults:         20,
		},
		Assembly: AssemblyConfig{
			TokenBudget: 2000,
		},
		Storage: StorageConfig{
			Path:        DefaultStoragePath(),
			CacheSizeMB: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// DefaultStoragePath returns the default SQLite database path.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".recall", "memory.db")
	}
	return filepath.Join(home, ".recall", "memory.db")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/recall/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/recall/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recall", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "recall", "config.yaml")
	}
	return filepath.Join(home, ".config", "recall", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration starting from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/recall/config.yaml)
//  3. Project config (.recall.yaml in dir)
//  4. Environment variables (RECALL_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .recall.yaml or .recall.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".recall.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".recall.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine, defaults apply.
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Classifier
	if other.Classifier.Endpoint != "" {
		c.Classifier.Endpoint = other.Classifier.Endpoint
	}
	if other.Classifier.Model != "" {
		c.Classifier.Model = other.Classifier.Model
	}
	if other.Classifier.Timeout != 0 {
		c.Classifier.Timeout = other.Classifier.Timeout
	}
	if other.Classifier.CacheSize != 0 {
		c.Classifier.CacheSize = other.Classifier.CacheSize
	}
	if other.Classifier.FallbackOnly {
		c.Classifier.FallbackOnly = true
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.APIKeyEnv != "" {
		c.Embeddings.APIKeyEnv = other.Embeddings.APIKeyEnv
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	// Cache
	if other.Cache.MaxEntries != 0 {
		c.Cache.MaxEntries = other.Cache.MaxEntries
	}
	if other.Cache.Tier3Threshold != 0 {
		c.Cache.Tier3Threshold = other.Cache.Tier3Threshold
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}

	// Search
	if other.Search.ExactScore != 0 {
		c.Search.ExactScore = other.Search.ExactScore
	}
	if other.Search.EntityTagScore != 0 {
		c.Search.EntityTagScore = other.Search.EntityTagScore
	}
	if other.Search.EntityMentionScore != 0 {
		c.Search.EntityMentionScore = other.Search.EntityMentionScore
	}
	if other.Search.SemanticThreshold != 0 {
		c.Search.SemanticThreshold = other.Search.SemanticThreshold
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	// Assembly
	if other.Assembly.TokenBudget != 0 {
		c.Assembly.TokenBudget = other.Assembly.TokenBudget
	}

	// Storage
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Storage.CacheSizeMB != 0 {
		c.Storage.CacheSizeMB = other.Storage.CacheSizeMB
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies RECALL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECALL_CLASSIFIER_ENDPOINT"); v != "" {
		c.Classifier.Endpoint = v
	}
	if v := os.Getenv("RECALL_CLASSIFIER_MODEL"); v != "" {
		c.Classifier.Model = v
	}
	if v := os.Getenv("RECALL_CLASSIFIER_FALLBACK_ONLY"); v != "" {
		c.Classifier.FallbackOnly = isTruthy(v)
	}
	if v := os.Getenv("RECALL_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RECALL_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("RECALL_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RECALL_CACHE_TIER3_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && t > 0 && t <= 1 {
			c.Cache.Tier3Threshold = t
		}
	}
	if v := os.Getenv("RECALL_SEMANTIC_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && t >= 0 && t <= 1 {
			c.Search.SemanticThreshold = t
		}
	}
	if v := os.Getenv("RECALL_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Assembly.TokenBudget = n
		}
	}
	if v := os.Getenv("RECALL_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("RECALL_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("RECALL_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

func isTruthy(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"static": true, "http": true, "none": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return fmt.Errorf("embeddings.provider must be 'static', 'http', or 'none', got %s", c.Embeddings.Provider)
	}
	if strings.ToLower(c.Embeddings.Provider) == "http" && c.Embeddings.Endpoint == "" {
		return fmt.Errorf("embeddings.endpoint is required when provider is 'http'")
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}

	if c.Cache.Tier3Threshold <= 0 || c.Cache.Tier3Threshold > 1 {
		return fmt.Errorf("cache.tier3_threshold must be in (0, 1], got %f", c.Cache.Tier3Threshold)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative, got %d", c.Cache.MaxEntries)
	}

	if c.Search.SemanticThreshold < 0 || c.Search.SemanticThreshold > 1 {
		return fmt.Errorf("search.semantic_threshold must be between 0 and 1, got %f", c.Search.SemanticThreshold)
	}
	if c.Search.ExactScore < 0 || c.Search.EntityTagScore < 0 || c.Search.EntityMentionScore < 0 {
		return fmt.Errorf("search scores must be non-negative")
	}
	if math.IsNaN(c.Search.SemanticThreshold) {
		return fmt.Errorf("search.semantic_threshold must be a number")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	if c.Assembly.TokenBudget <= 0 {
		return fmt.Errorf("assembly.token_budget must be positive, got %d", c.Assembly.TokenBudget)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
