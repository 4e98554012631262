package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"paperchat/internal/domain"
)

// Config holds all configuration for paperchat.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Store     StoreConfig     `yaml:"store"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Provider  ProviderConfig  `yaml:"provider"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds on-disk index configuration.
type IndexConfig struct {
	Path            string `yaml:"path"`             // Directory holding index.db
	ReplaceExisting bool   `yaml:"replace_existing"` // Delete a paper's records before re-ingesting it
	OpenTimeoutSecs int    `yaml:"open_timeout_secs"`
}

// StoreConfig selects the vector index backend.
type StoreConfig struct {
	Type        string `yaml:"type"` // "bolt", "pgvector", "memory"
	PostgresURL string `yaml:"postgres_url"`
	Table       string `yaml:"table"`
}

// ChunkConfig holds chunking configuration. Sizes are in characters.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"` // Minimum cosine similarity a chunk needs to be used as context
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model        string `yaml:"model"`       // e.g., "text-embedding-3-small"
	BaseURL      string `yaml:"base_url"`    // Override for OpenAI-compatible endpoints
	APIKeyEnv    string `yaml:"api_key_env"` // Environment variable for API key
	Dimension    int    `yaml:"dimension"`
	BatchSize    int    `yaml:"batch_size"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
	CacheSize    int    `yaml:"cache_size"` // Query embedding cache entries (0 = disabled)
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
}

// ChatConfig holds chat-completion configuration.
type ChatConfig struct {
	Provider    string   `yaml:"provider"` // "openai", "mock"
	Model       string   `yaml:"model"`    // Default model, overridable per request
	Models      []string `yaml:"models"`   // Models offered for selection
	BaseURL     string   `yaml:"base_url"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	Temperature float64  `yaml:"temperature"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// ProviderConfig holds retry policy shared by embedding and chat providers.
type ProviderConfig struct {
	MaxRetries    int `yaml:"max_retries"` // 0 = single attempt
	BackoffMillis int `yaml:"backoff_millis"`
}

// IngestConfig holds directory ingestion patterns.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Path:            ".paperchat",
			ReplaceExisting: true,
			OpenTimeoutSecs: 5,
		},
		Store: StoreConfig{
			Type:  "bolt",
			Table: "paper_chunks",
		},
		Chunk: ChunkConfig{
			Size:    750,
			Overlap: 200,
		},
		Retrieve: RetrieveConfig{
			TopK:      5,
			Threshold: 0.5,
		},
		Embedding: EmbeddingConfig{
			Provider:     "openai",
			Model:        "text-embedding-3-small",
			APIKeyEnv:    "OPENAI_API_KEY",
			Dimension:    1536,
			BatchSize:    100,
			TimeoutSecs:  60,
			CacheSize:    256,
			CacheTTLSecs: 600,
		},
		Chat: ChatConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			Models:      []string{"gpt-4", "gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"},
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.7,
			TimeoutSecs: 120,
		},
		Provider: ProviderConfig{
			MaxRetries:    0,
			BackoffMillis: 500,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.pdf"},
			Excludes: []string{"**/.git/**", "**/.paperchat/**"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
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

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for paperchat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "paperchat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".paperchat", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the values the pipeline depends on.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("%w: chunk.size must be positive, got %d", domain.ErrInvalidConfig, c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("%w: chunk.overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, c.Chunk.Size, c.Chunk.Overlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("%w: retrieve.top_k must be positive, got %d", domain.ErrInvalidConfig, c.Retrieve.TopK)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("%w: embedding.dimension must be positive", domain.ErrInvalidConfig)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("%w: chat.model is required", domain.ErrInvalidConfig)
	}
	switch c.Store.Type {
	case "bolt", "memory":
	case "pgvector":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("%w: store.postgres_url is required for pgvector", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store type %q", domain.ErrInvalidConfig, c.Store.Type)
	}
	return nil
}

// IndexDir resolves the index directory relative to root.
func (c *Config) IndexDir(root string) string {
	if filepath.IsAbs(c.Index.Path) {
		return c.Index.Path
	}
	return filepath.Join(root, c.Index.Path)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(indexDir string) string {
	return filepath.Join(indexDir, "index.db")
}

// EnsureIndexDir ensures the index directory exists.
func EnsureIndexDir(indexDir string) error {
	return os.MkdirAll(indexDir, 0755)
}
