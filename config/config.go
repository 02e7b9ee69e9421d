package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for ragdesk.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Web       WebConfig       `yaml:"web"`
	Assistant AssistantConfig `yaml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig selects the vector table backend.
type StoreConfig struct {
	Type         string `yaml:"type"` // "bolt", "pgvector"
	Path         string `yaml:"path"` // bolt file, relative to the root directory
	DSN          string `yaml:"dsn"`  // postgres connection string for pgvector
	DefaultTable string `yaml:"default_table"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`    // "openai", "gemini", "mock"
	Model        string `yaml:"model"`       // e.g., "text-embedding-3-large"
	APIKeyEnv    string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL      string `yaml:"base_url"`
	Dimension    int    `yaml:"dimension"`
	BatchSize    int    `yaml:"batch_size"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
	CacheSize    int    `yaml:"cache_size"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
}

// IngestConfig holds document conversion and chunking configuration.
type IngestConfig struct {
	MaxTokens    int      `yaml:"max_tokens"`
	MergePeers   bool     `yaml:"merge_peers"`
	MaxTableRows int      `yaml:"max_table_rows"`
	Excludes     []string `yaml:"excludes"`
}

// WebConfig holds crawling configuration.
type WebConfig struct {
	MaxPages         int    `yaml:"max_pages"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs"`
	UserAgent        string `yaml:"user_agent"`
}

// AssistantConfig holds completions API configuration.
type AssistantConfig struct {
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
	ContextResults int    `yaml:"context_results"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Type:         "bolt",
			Path:         filepath.Join(".ragdesk", "vectors.db"),
			DefaultTable: "files",
		},
		Embedding: EmbeddingConfig{
			Provider:     "openai",
			Model:        "text-embedding-3-large",
			APIKeyEnv:    "OPENAI_API_KEY",
			BaseURL:      "https://api.openai.com/v1",
			Dimension:    3072,
			BatchSize:    100,
			TimeoutSecs:  60,
			CacheSize:    256,
			CacheTTLSecs: 600,
		},
		Ingest: IngestConfig{
			MaxTokens:    8191,
			MergePeers:   true,
			MaxTableRows: 100,
			Excludes:     []string{"**/.git/**", "**/.ragdesk/**", "**/~$*"},
		},
		Web: WebConfig{
			MaxPages:         20,
			FetchTimeoutSecs: 10,
			UserAgent:        "ragdesk/1.0",
		},
		Assistant: AssistantConfig{
			Model:          "gpt-4o",
			BaseURL:        "https://api.openai.com/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSecs:    120,
			ContextResults: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragdesk.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragdesk.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragdesk", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "bolt":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for bolt store")
		}
	case "pgvector":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for pgvector store")
		}
	default:
		return fmt.Errorf("store.type must be bolt or pgvector, got %q", c.Store.Type)
	}
	if c.Store.DefaultTable == "" {
		return fmt.Errorf("store.default_table is required")
	}
	switch c.Embedding.Provider {
	case "openai", "gemini", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	if c.Ingest.MaxTokens <= 0 {
		return fmt.Errorf("ingest.max_tokens must be positive")
	}
	if c.Ingest.MaxTableRows <= 1 {
		return fmt.Errorf("ingest.max_table_rows must be greater than 1")
	}
	if c.Web.MaxPages <= 0 {
		return fmt.Errorf("web.max_pages must be positive")
	}
	if c.Assistant.ContextResults <= 0 {
		return fmt.Errorf("assistant.context_results must be positive")
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the bolt database path for a root directory.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureStoreDir ensures the directory holding the bolt file exists.
func (c *Config) EnsureStoreDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}
