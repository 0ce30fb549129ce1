package semcache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"nl2sql_cache/cache"
)

// ErrSnapshotDimension is returned by Restore when a snapshot was taken with
// a different embedding dimension than the running cache.
var ErrSnapshotDimension = errors.New("snapshot embedding dimension mismatch")

// Snapshot writes every cached entry to w as JSON. The serialized form
// round-trips exactly through Restore: ids, vectors, fingerprints, SQL,
// reasoning traces, timestamps, and hit counts all survive.
func (c *Cache) Snapshot(ctx context.Context, w io.Writer) error {
	c.mu.RLock()
	entries, err := c.store.Entries(ctx)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("fail to read cache entries: %w", err)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("fail to encode cache snapshot: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Snapshot into the store and index.
// Entries whose embedding dimension does not match the configured dimension
// are rejected.
func (c *Cache) Restore(ctx context.Context, r io.Reader) error {
	var entries []*cache.Entry
	dec := json.NewDecoder(r)
	if err := dec.Decode(&entries); err != nil {
		return fmt.Errorf("fail to decode cache snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if len(e.Embedding) != c.cfg.Dimensions {
			return fmt.Errorf("%w: snapshot entry %s has %d dimensions, index expects %d",
				ErrSnapshotDimension, e.ID, len(e.Embedding), c.cfg.Dimensions)
		}
	}
	for _, e := range entries {
		evicted, err := c.store.Put(ctx, e)
		if err != nil {
			return fmt.Errorf("fail to restore entry %s: %w", e.ID, err)
		}
		if err := c.index.Insert(ctx, e.ID, e.Embedding); err != nil {
			_ = c.store.Remove(ctx, e.ID)
			return fmt.Errorf("fail to restore vector %s: %w", e.ID, err)
		}
		for _, ev := range evicted {
			if err := c.index.Remove(ctx, ev.ID); err != nil {
				return fmt.Errorf("fail to remove vector %s: %w", ev.ID, err)
			}
		}
	}
	return nil
}
