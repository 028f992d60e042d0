// Package config loads pipeline configuration from a TOML file with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables overriding file-based credentials. Secrets
// belong in the environment, not on disk.
const (
	EnvInstagramToken    = "INSTAGRAM_ACCESS_TOKEN"
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvPineconeKey       = "PINECONE_API_KEY"
	EnvPineconeIndexHost = "PINECONE_INDEX_HOST"
)

// Config is the full pipeline configuration.
type Config struct {
	// DataDir holds the SQLite database. Empty uses ~/.gramsync/data.
	DataDir string `toml:"data_dir"`

	Sync      SyncConfig      `toml:"sync"`
	Instagram InstagramConfig `toml:"instagram"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Pinecone  PineconeConfig  `toml:"pinecone"`
}

// SyncConfig tunes the sync cycle.
type SyncConfig struct {
	// Lookback widens the fetch boundary below the watermark so fresh
	// comments on older posts are picked up. Duration string.
	Lookback string `toml:"lookback"`

	// Interval is the scheduler cadence for the serve command.
	// Duration string.
	Interval string `toml:"interval"`

	// ChunkSize is the embedding chunk size in runes.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between adjacent chunks in runes.
	ChunkOverlap int `toml:"chunk_overlap"`
}

// InstagramConfig configures the content source.
type InstagramConfig struct {
	AccessToken       string  `toml:"access_token"`
	BaseURL           string  `toml:"base_url"`
	PageSize          int     `toml:"page_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// OpenAIConfig configures the embedding service.
type OpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// PineconeConfig configures the vector store.
type PineconeConfig struct {
	APIKey    string `toml:"api_key"`
	IndexHost string `toml:"index_host"`
	Namespace string `toml:"namespace"`
}

// Default creates a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Lookback:     "168h", // 7 days
			Interval:     "1h",
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.gramsync/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".gramsync", "config.toml"), nil
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides. An empty
// path uses DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment is a valid setup.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides credentials from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvInstagramToken); v != "" {
		c.Instagram.AccessToken = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvPineconeKey); v != "" {
		c.Pinecone.APIKey = v
	}
	if v := os.Getenv(EnvPineconeIndexHost); v != "" {
		c.Pinecone.IndexHost = v
	}
}

// validate fails fast on malformed duration strings so a bad config is
// caught at startup, not mid-run.
func (c *Config) validate() error {
	if _, err := c.Lookback(); err != nil {
		return err
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	if c.Sync.ChunkSize <= 0 {
		return fmt.Errorf("sync.chunk_size must be positive, got %d", c.Sync.ChunkSize)
	}
	if c.Sync.ChunkOverlap < 0 {
		return fmt.Errorf("sync.chunk_overlap must not be negative, got %d", c.Sync.ChunkOverlap)
	}
	return nil
}

// Lookback parses the configured lookback window.
func (c *Config) Lookback() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.Lookback)
	if err != nil {
		return 0, fmt.Errorf("parsing sync.lookback %q: %w", c.Sync.Lookback, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("sync.lookback must not be negative, got %s", d)
	}
	return d, nil
}

// Interval parses the configured scheduler cadence.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.Interval)
	if err != nil {
		return 0, fmt.Errorf("parsing sync.interval %q: %w", c.Sync.Interval, err)
	}
	if d < time.Minute {
		return 0, fmt.Errorf("sync.interval must be at least 1m, got %s", d)
	}
	return d, nil
}
