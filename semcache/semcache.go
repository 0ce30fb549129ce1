// Package semcache implements the semantic query cache controller: it
// intercepts natural-language questions before the external LLM call,
// returns a previously resolved answer when a semantically equivalent
// question was already answered against the same table schema, and mediates
// cache writes on the miss path.
package semcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"nl2sql_cache/cache"
	"nl2sql_cache/embedding"
	"nl2sql_cache/resolver"
	"nl2sql_cache/schema"
	"nl2sql_cache/vector"
)

// Tracker supplies live schema metadata: current fingerprints for hit
// validation and full table schemas for the resolution prompt.
// *schema.Registry satisfies it.
type Tracker interface {
	Fingerprint(names ...string) (schema.Fingerprint, error)
	Tables(names ...string) ([]schema.Table, error)
}

// Config tunes the lookup behavior.
type Config struct {
	// Metric is the distance function of the vector index.
	Metric vector.Metric `yaml:"metric"`
	// SimilarityThreshold qualifies a candidate: minimum cosine similarity,
	// or maximum euclidean distance.
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
	// Capacity bounds the cache store.
	Capacity int `yaml:"capacity"`
	// CandidateK is how many nearest neighbors a lookup considers.
	CandidateK int `yaml:"candidate_k"`
	// Dimensions is the fixed embedding dimension.
	Dimensions int `yaml:"dimensions"`
}

// DefaultConfig returns the thresholds the service ships with.
func DefaultConfig() Config {
	return Config{
		Metric:              vector.MetricCosine,
		SimilarityThreshold: 0.95,
		Capacity:            1024,
		CandidateK:          3,
		Dimensions:          1536,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Metric.Validate(); err != nil {
		return err
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("invalid cache capacity: %d", c.Capacity)
	}
	if c.CandidateK <= 0 {
		return fmt.Errorf("invalid candidate count: %d", c.CandidateK)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("invalid dimensions: %d", c.Dimensions)
	}
	if c.Metric == vector.MetricCosine && (c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1) {
		return fmt.Errorf("cosine similarity threshold out of range: %f", c.SimilarityThreshold)
	}
	if c.Metric == vector.MetricEuclidean && c.SimilarityThreshold <= 0 {
		return fmt.Errorf("euclidean distance threshold out of range: %f", c.SimilarityThreshold)
	}
	return nil
}

// Result is the outcome of a resolve call.
type Result struct {
	SQL       string       `json:"sql"`
	Reasoning []string     `json:"reasoning"`
	Status    cache.Status `json:"cache_status"`
}

// Stats are cumulative counters since construction.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	EmbedErrors int64 `json:"embed_errors"`
	Size        int   `json:"size"`
}

// Deps are the collaborators a Cache orchestrates.
type Deps struct {
	Embedder embedding.Service
	Index    vector.Index
	Store    cache.Store
	Tracker  Tracker
	Pipeline resolver.Pipeline
	Logger   *slog.Logger
}

// Cache is the controller. It owns the pairing of the vector index and the
// cache store: every mutation of one is applied to the other under the same
// write lock, so a concurrent lookup never observes an entry present in one
// structure but not the other.
type Cache struct {
	cfg      Config
	embedder embedding.Service
	index    vector.Index
	store    cache.Store
	tracker  Tracker
	pipeline resolver.Pipeline
	log      *slog.Logger

	// mu couples index+store mutations. Lookups hold it for reading only;
	// the external resolution call runs with no lock held.
	mu sync.RWMutex

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	embedErrors atomic.Int64
}

// New creates a cache controller.
func New(cfg Config, d Deps) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Embedder == nil || d.Index == nil || d.Store == nil || d.Tracker == nil || d.Pipeline == nil {
		return nil, fmt.Errorf("missing cache dependency")
	}
	if d.Embedder.Dimensions() != cfg.Dimensions {
		return nil, fmt.Errorf("embedder dimensions %d do not match configured %d", d.Embedder.Dimensions(), cfg.Dimensions)
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		cfg:      cfg,
		embedder: d.Embedder,
		index:    d.Index,
		store:    d.Store,
		tracker:  d.Tracker,
		pipeline: d.Pipeline,
		log:      log,
	}, nil
}

// Resolve answers a natural-language question against the named tables,
// from the cache when a semantically equivalent question was already
// resolved against an identical schema, otherwise through the resolution
// pipeline.
func (c *Cache) Resolve(ctx context.Context, question string, tables []string) (*Result, error) {
	liveFP, err := c.tracker.Fingerprint(tables...)
	if err != nil {
		return nil, err
	}

	// EMBEDDING. Failure forces a miss; the question still gets answered.
	vec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		c.embedErrors.Inc()
		c.log.Warn("embedding failed, forcing cache miss", "error", err)
		vec = nil
	}

	// SEARCHING + VALIDATING.
	if vec != nil {
		if res := c.lookup(ctx, vec, liveFP); res != nil {
			c.hits.Inc()
			return res, nil
		}
	}
	c.misses.Inc()

	// RESOLVING, outside any lock.
	tableSchemas, err := c.tracker.Tables(tables...)
	if err != nil {
		return nil, err
	}
	resolution, err := c.pipeline.Generate(ctx, question, tableSchemas)
	if err != nil {
		return nil, fmt.Errorf("fail to resolve question: %w", err)
	}

	// STORING, best-effort: a cache write failure never costs the answer.
	if vec != nil && resolution.Validated {
		c.storeResolution(ctx, question, vec, tables, resolution)
	} else if !resolution.Validated {
		c.log.Warn("resolution not marked validated, skipping cache write")
	}

	return &Result{
		SQL:       resolution.SQL,
		Reasoning: resolution.Reasoning,
		Status:    cache.StatusMiss,
	}, nil
}

// lookup scans nearest neighbors in ascending distance order and returns
// the first candidate whose schema fingerprint still matches the live
// schema. A stale candidate never blocks a hit on the next-closest one.
func (c *Cache) lookup(ctx context.Context, vec []float32, liveFP schema.Fingerprint) *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates, err := c.index.Search(ctx, vec, c.cfg.CandidateK)
	if err != nil {
		c.log.Error("vector search failed", "error", err)
		return nil
	}
	for _, cand := range candidates {
		if !c.cfg.Metric.Within(c.cfg.SimilarityThreshold, cand.Distance) {
			// Candidates arrive in ascending distance order.
			break
		}
		entry, err := c.store.Get(ctx, cand.ID)
		if err != nil {
			c.log.Error("cache store lookup failed", "id", cand.ID, "error", err)
			continue
		}
		if entry.Fingerprint != liveFP {
			continue
		}
		if err := c.store.Touch(ctx, cand.ID); err != nil {
			c.log.Error("cache touch failed", "id", cand.ID, "error", err)
		}
		c.log.Debug("cache hit", "id", cand.ID, "distance", cand.Distance)
		return &Result{
			SQL:       entry.SQL,
			Reasoning: entry.Reasoning,
			Status:    cache.StatusHit,
		}
	}
	return nil
}

// storeResolution persists a fresh resolution. The fingerprint is
// recomputed here so the entry records the schema as of storing time.
func (c *Cache) storeResolution(ctx context.Context, question string, vec []float32, tables []string, resolution *resolver.Resolution) {
	if len(vec) != c.cfg.Dimensions {
		c.log.Error("embedding dimension mismatch, entry not stored",
			"got", len(vec), "want", c.cfg.Dimensions)
		return
	}
	fp, err := c.tracker.Fingerprint(tables...)
	if err != nil {
		c.log.Error("fingerprint failed, entry not stored", "error", err)
		return
	}
	entry := cache.NewEntry(question, vec, tables, fp, resolution.SQL, resolution.Reasoning)

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted, err := c.store.Put(ctx, entry)
	if err != nil {
		c.log.Error("cache store put failed", "error", err)
		return
	}
	if err := c.index.Insert(ctx, entry.ID, vec); err != nil {
		// Keep the no-orphan invariant: back the entry out of the store.
		if rmErr := c.store.Remove(ctx, entry.ID); rmErr != nil {
			c.log.Error("cache rollback failed", "id", entry.ID, "error", rmErr)
		}
		c.log.Error("vector index insert failed, entry not stored", "error", err)
	}
	for _, ev := range evicted {
		if err := c.index.Remove(ctx, ev.ID); err != nil {
			c.log.Error("vector index remove failed", "id", ev.ID, "error", err)
		}
		c.evictions.Inc()
	}
}

// Invalidate drops every cached resolution that touches the named table.
// Called whenever a table is created over a reused name, altered, or
// dropped. Invalidating a table with no entries is a no-op.
func (c *Cache) Invalidate(ctx context.Context, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, err := c.store.RemoveWhere(ctx, func(e *cache.Entry) bool {
		return e.TouchesTable(table)
	})
	if err != nil {
		return fmt.Errorf("fail to invalidate table %s: %w", table, err)
	}
	for _, id := range removed {
		if err := c.index.Remove(ctx, id); err != nil {
			return fmt.Errorf("fail to remove vector %s: %w", id, err)
		}
	}
	if len(removed) > 0 {
		c.log.Info("invalidated cache entries", "table", table, "count", len(removed))
	}
	return nil
}

// Flush removes every cached entry.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, err := c.store.RemoveWhere(ctx, func(*cache.Entry) bool { return true })
	if err != nil {
		return fmt.Errorf("fail to flush cache: %w", err)
	}
	for _, id := range removed {
		if err := c.index.Remove(ctx, id); err != nil {
			return fmt.Errorf("fail to remove vector %s: %w", id, err)
		}
	}
	return nil
}

// Stats returns cumulative counters and the current cache size.
func (c *Cache) Stats(ctx context.Context) Stats {
	size, err := c.store.Len(ctx)
	if err != nil {
		c.log.Error("cache size read failed", "error", err)
	}
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		EmbedErrors: c.embedErrors.Load(),
		Size:        size,
	}
}

// Close releases the store and index.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Close(); err != nil {
		return err
	}
	return c.index.Close()
}
