package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nl2sql_cache/vector"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, vector.MetricCosine, cfg.Cache.Metric)
	assert.Equal(t, float32(0.95), cfg.Cache.SimilarityThreshold)
	assert.Equal(t, VectorBackendFlat, cfg.Vector.Backend)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	assert.Equal(t, cfg.Cache.Capacity, cfg.Store.Redis.Capacity)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
cache:
  metric: euclidean
  similarity_threshold: 0.2
  capacity: 64
  candidate_k: 5
  dimensions: 384
vector:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    port: 6334
    collection: sqlcache
store:
  backend: redis
  redis:
    addr: redis.internal:6379
    namespace: sqlcache
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, vector.MetricEuclidean, cfg.Cache.Metric)
	assert.Equal(t, 64, cfg.Cache.Capacity)
	assert.Equal(t, 384, cfg.Cache.Dimensions)
	assert.Equal(t, VectorBackendQdrant, cfg.Vector.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Vector.Qdrant.Host)
	assert.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
	// Store capacity follows the cache capacity.
	assert.Equal(t, 64, cfg.Store.Redis.Capacity)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("REDIS_ADDR", "override:6379")
	t.Setenv("QDRANT_HOST", "override-host")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "override:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "override-host", cfg.Vector.Qdrant.Host)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "cache:\n  capacity: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "vector:\n  backend: pinecone\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "store:\n  backend: dynamo\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
