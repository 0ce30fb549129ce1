package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and Touch for an absent id.
var ErrNotFound = errors.New("cache entry not found")

// Store maps entry ids to cached resolutions and maintains the access order
// used for LRU eviction. Returned entries are copies; mutating them does not
// affect the store.
type Store interface {
	// Get returns the entry for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)
	// Put inserts the entry. If the store is at capacity it first evicts the
	// entry with the oldest last access time (ties broken by oldest creation
	// time) and returns the evicted entries so the caller can drop their
	// vectors too.
	Put(ctx context.Context, e *Entry) ([]*Entry, error)
	// Touch records a confirmed hit: bumps the hit count and advances the
	// last access time.
	Touch(ctx context.Context, id string) error
	// Remove deletes an entry. Removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error
	// RemoveWhere deletes every entry matching the predicate and returns the
	// removed ids.
	RemoveWhere(ctx context.Context, pred func(*Entry) bool) ([]string, error)
	// Entries returns a copy of every stored entry, in no particular order.
	Entries(ctx context.Context) ([]*Entry, error)
	// Len reports the number of stored entries.
	Len(ctx context.Context) (int, error)
	// Close releases any resources held by the store.
	Close() error
}
