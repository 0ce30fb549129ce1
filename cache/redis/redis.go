// Package redis provides a Redis-backed cache store, for deployments where
// cached resolutions should survive process restarts. Entries are stored as
// JSON values and the LRU order is kept in a sorted set scored by last
// access time.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"nl2sql_cache/cache"
)

// Config holds configuration for the Redis store.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	Namespace    string        `yaml:"namespace"`
	Capacity     int           `yaml:"capacity"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Namespace:    "nl2sql",
		Capacity:     1024,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Store implements cache.Store on Redis.
type Store struct {
	client    *goredis.Client
	namespace string
	capacity  int
}

// New creates a Redis store and verifies the connection.
func New(cfg Config) (*Store, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("invalid cache capacity: %d", cfg.Capacity)
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("fail to connect to redis: %w", err)
	}

	return &Store{
		client:    client,
		namespace: cfg.Namespace,
		capacity:  cfg.Capacity,
	}, nil
}

func (s *Store) entryKey(id string) string {
	return s.namespace + ":entry:" + id
}

func (s *Store) accessKey() string {
	return s.namespace + ":access"
}

// Get implements [cache.Store].
func (s *Store) Get(ctx context.Context, id string) (*cache.Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fail to get cache entry: %w", err)
	}
	var e cache.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("fail to unmarshal cache entry: %w", err)
	}
	return &e, nil
}

// Put implements [cache.Store].
func (s *Store) Put(ctx context.Context, e *cache.Entry) ([]*cache.Entry, error) {
	exists, err := s.client.Exists(ctx, s.entryKey(e.ID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to check cache entry: %w", err)
	}

	var evicted []*cache.Entry
	if exists == 0 {
		size, err := s.client.ZCard(ctx, s.accessKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("fail to read cache size: %w", err)
		}
		for size >= int64(s.capacity) {
			victim, err := s.evictOne(ctx)
			if err != nil {
				return evicted, err
			}
			if victim == nil {
				break
			}
			evicted = append(evicted, victim)
			size--
		}
	}

	if err := s.write(ctx, e); err != nil {
		return evicted, err
	}
	return evicted, nil
}

// evictOne removes the entry with the oldest last access time, breaking
// score ties by oldest creation time.
func (s *Store) evictOne(ctx context.Context) (*cache.Entry, error) {
	lowest, err := s.client.ZRangeWithScores(ctx, s.accessKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to read eviction candidate: %w", err)
	}
	if len(lowest) == 0 {
		return nil, nil
	}

	score := lowest[0].Score
	tied, err := s.client.ZRangeByScore(ctx, s.accessKey(), &goredis.ZRangeBy{
		Min: fmt.Sprintf("%f", score),
		Max: fmt.Sprintf("%f", score),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to read tied eviction candidates: %w", err)
	}

	var victim *cache.Entry
	for _, id := range tied {
		e, err := s.Get(ctx, id)
		if errors.Is(err, cache.ErrNotFound) {
			// Orphaned score; drop it.
			_ = s.client.ZRem(ctx, s.accessKey(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if victim == nil || e.CreatedAt.Before(victim.CreatedAt) {
			victim = e
		}
	}
	if victim == nil {
		return nil, nil
	}
	if err := s.Remove(ctx, victim.ID); err != nil {
		return nil, err
	}
	return victim, nil
}

func (s *Store) write(ctx context.Context, e *cache.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("fail to marshal cache entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.entryKey(e.ID), data, 0)
	pipe.ZAdd(ctx, s.accessKey(), goredis.Z{
		Score:  float64(e.LastAccessedAt.UnixNano()),
		Member: e.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail to write cache entry: %w", err)
	}
	return nil
}

// Touch implements [cache.Store].
func (s *Store) Touch(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	e.HitCount++
	if now := time.Now(); now.After(e.LastAccessedAt) {
		e.LastAccessedAt = now
	}
	return s.write(ctx, e)
}

// Remove implements [cache.Store].
func (s *Store) Remove(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.entryKey(id))
	pipe.ZRem(ctx, s.accessKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail to remove cache entry: %w", err)
	}
	return nil
}

// RemoveWhere implements [cache.Store].
func (s *Store) RemoveWhere(ctx context.Context, pred func(*cache.Entry) bool) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to list cache entries: %w", err)
	}

	var removed []string
	for _, id := range ids {
		e, err := s.Get(ctx, id)
		if errors.Is(err, cache.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if pred(e) {
			if err := s.Remove(ctx, id); err != nil {
				return removed, err
			}
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Entries implements [cache.Store].
func (s *Store) Entries(ctx context.Context) ([]*cache.Entry, error) {
	ids, err := s.client.ZRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to list cache entries: %w", err)
	}
	out := make([]*cache.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := s.Get(ctx, id)
		if errors.Is(err, cache.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Len implements [cache.Store].
func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.accessKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("fail to read cache size: %w", err)
	}
	return int(n), nil
}

// Close implements [cache.Store].
func (s *Store) Close() error {
	return s.client.Close()
}
