// Package lru provides the in-memory cache store: a bounded map with
// least-recently-used eviction ordered by last access time.
package lru

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"nl2sql_cache/cache"
)

// Store is a bounded in-memory cache.Store. The list front holds the most
// recently used entry; eviction pops from the back, which by construction is
// the entry with the oldest last access (ties resolved by oldest creation,
// since untouched entries keep insertion order).
type Store struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// New creates a store bounded to capacity entries.
func New(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid cache capacity: %d", capacity)
	}
	return &Store{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}, nil
}

// Get implements [cache.Store].
func (s *Store) Get(_ context.Context, id string) (*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return el.Value.(*cache.Entry).Clone(), nil
}

// Put implements [cache.Store].
func (s *Store) Put(_ context.Context, e *cache.Entry) ([]*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[e.ID]; ok {
		el.Value = e.Clone()
		s.order.MoveToFront(el)
		return nil, nil
	}

	var evicted []*cache.Entry
	for s.order.Len() >= s.capacity {
		back := s.order.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*cache.Entry)
		s.order.Remove(back)
		delete(s.items, victim.ID)
		evicted = append(evicted, victim)
	}

	s.items[e.ID] = s.order.PushFront(e.Clone())
	return evicted, nil
}

// Touch implements [cache.Store].
func (s *Store) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return cache.ErrNotFound
	}
	e := el.Value.(*cache.Entry)
	e.HitCount++
	if now := time.Now(); now.After(e.LastAccessedAt) {
		e.LastAccessedAt = now
	}
	s.order.MoveToFront(el)
	return nil
}

// Remove implements [cache.Store].
func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[id]; ok {
		s.order.Remove(el)
		delete(s.items, id)
	}
	return nil
}

// RemoveWhere implements [cache.Store].
func (s *Store) RemoveWhere(_ context.Context, pred func(*cache.Entry) bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*cache.Entry)
		if pred(e) {
			s.order.Remove(el)
			delete(s.items, e.ID)
			removed = append(removed, e.ID)
		}
		el = next
	}
	return removed, nil
}

// Entries implements [cache.Store].
func (s *Store) Entries(_ context.Context) ([]*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*cache.Entry, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*cache.Entry).Clone())
	}
	return out, nil
}

// Len implements [cache.Store].
func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len(), nil
}

// Close implements [cache.Store].
func (s *Store) Close() error {
	s.mu.Lock()
	s.order.Init()
	s.items = make(map[string]*list.Element)
	s.mu.Unlock()
	return nil
}
