// Package config loads the service configuration from a YAML file with
// environment-variable overrides for addresses and defaults for everything
// else.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	cacheredis "nl2sql_cache/cache/redis"
	"nl2sql_cache/semcache"
	vectorqdrant "nl2sql_cache/vector/qdrant"
)

// Backend names for the vector index and cache store.
const (
	VectorBackendFlat   = "flat"
	VectorBackendQdrant = "qdrant"

	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// EmbeddingConfig configures the embedder adapter.
type EmbeddingConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ResolverConfig configures the resolution pipeline adapter.
type ResolverConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// VectorConfig selects and configures the vector index backend.
type VectorConfig struct {
	Backend string              `yaml:"backend"`
	Qdrant  vectorqdrant.Config `yaml:"qdrant"`
}

// StoreConfig selects and configures the cache store backend.
type StoreConfig struct {
	Backend string            `yaml:"backend"`
	Redis   cacheredis.Config `yaml:"redis"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     semcache.Config `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Vector    VectorConfig    `yaml:"vector"`
	Store     StoreConfig     `yaml:"store"`
}

// Default returns the configuration the service ships with.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Cache:  semcache.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Endpoint:  "https://api.openai.com/v1/embeddings",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Resolver: ResolverConfig{
			Endpoint:  "https://openrouter.ai/api/v1/chat/completions",
			Model:     "mistralai/mistral-7b-instruct",
			APIKeyEnv: "OPENROUTER_API_KEY",
		},
		Vector: VectorConfig{
			Backend: VectorBackendFlat,
			Qdrant:  vectorqdrant.DefaultConfig(),
		},
		Store: StoreConfig{
			Backend: StoreBackendMemory,
			Redis:   cacheredis.DefaultConfig(),
		},
	}
}

// Load reads path (when non-empty) over the defaults and applies env
// overrides. The redis store capacity always follows the cache capacity.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("fail to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("fail to parse config file: %w", err)
		}
	}

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Store.Redis.Addr = addr
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		cfg.Vector.Qdrant.Host = host
	}

	cfg.Store.Redis.Capacity = cfg.Cache.Capacity

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration beyond what semcache.Config covers.
func (c Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	switch c.Vector.Backend {
	case VectorBackendFlat, VectorBackendQdrant:
	default:
		return fmt.Errorf("unsupported vector backend: %q", c.Vector.Backend)
	}
	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendRedis:
	default:
		return fmt.Errorf("unsupported store backend: %q", c.Store.Backend)
	}
	if c.Embedding.Endpoint == "" || c.Embedding.Model == "" {
		return fmt.Errorf("incomplete embedding configuration")
	}
	if c.Resolver.Endpoint == "" || c.Resolver.Model == "" {
		return fmt.Errorf("incomplete resolver configuration")
	}
	return nil
}
