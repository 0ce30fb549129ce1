// Package flat provides an exact in-memory vector index. Every search scans
// all stored vectors, which is fast enough for the cache sizes this system
// bounds with its LRU capacity.
package flat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"nl2sql_cache/vector"
)

// Index is an in-process exact-search vector index.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	metric     vector.Metric
	vectors    map[string][]float32
}

// New creates a flat index with a fixed dimension and distance metric.
func New(dimensions int, metric vector.Metric) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dimensions)
	}
	if err := metric.Validate(); err != nil {
		return nil, err
	}
	return &Index{
		dimensions: dimensions,
		metric:     metric,
		vectors:    make(map[string][]float32),
	}, nil
}

// Insert implements [vector.Index].
func (x *Index) Insert(_ context.Context, id string, vec []float32) error {
	if len(vec) != x.dimensions {
		return fmt.Errorf("%w: got %d, index expects %d", vector.ErrDimensionMismatch, len(vec), x.dimensions)
	}
	owned := make([]float32, len(vec))
	copy(owned, vec)

	x.mu.Lock()
	x.vectors[id] = owned
	x.mu.Unlock()
	return nil
}

// Remove implements [vector.Index].
func (x *Index) Remove(_ context.Context, id string) error {
	x.mu.Lock()
	delete(x.vectors, id)
	x.mu.Unlock()
	return nil
}

// Search implements [vector.Index].
func (x *Index) Search(_ context.Context, vec []float32, k int) ([]vector.Candidate, error) {
	if len(vec) != x.dimensions {
		return nil, fmt.Errorf("%w: got %d, index expects %d", vector.ErrDimensionMismatch, len(vec), x.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	candidates := make([]vector.Candidate, 0, len(x.vectors))
	for id, stored := range x.vectors {
		candidates = append(candidates, vector.Candidate{
			ID:       id,
			Distance: x.metric.Distance(vec, stored),
		})
	}
	x.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Len implements [vector.Index].
func (x *Index) Len(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors), nil
}

// Close implements [vector.Index].
func (x *Index) Close() error {
	x.mu.Lock()
	x.vectors = make(map[string][]float32)
	x.mu.Unlock()
	return nil
}
