// Package vector defines the nearest-neighbor index used by the semantic
// query cache. An index stores fixed-dimension question embeddings keyed by
// cache entry id and answers k-nearest-neighbor queries ordered by distance.
package vector

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector does not match the
// dimension the index was created with.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Metric selects the distance function used by an index.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// Validate reports whether the metric is one of the supported values.
func (m Metric) Validate() error {
	switch m {
	case MetricCosine, MetricEuclidean:
		return nil
	}
	return fmt.Errorf("unsupported distance metric: %q", m)
}

// Distance computes the distance between two vectors of equal length.
// For cosine the result is 1 - similarity, so smaller is closer for both
// metrics.
func (m Metric) Distance(a, b []float32) float32 {
	switch m {
	case MetricCosine:
		return CosineDistance(a, b)
	default:
		return EuclideanDistance(a, b)
	}
}

// Within reports whether a candidate at the given distance qualifies under
// the configured threshold. For cosine the threshold is a minimum
// similarity; for euclidean it is a maximum distance.
func (m Metric) Within(threshold, distance float32) bool {
	if m == MetricCosine {
		return 1-distance >= threshold
	}
	return distance <= threshold
}

// Candidate is a single nearest-neighbor search result, not yet validated
// against the live schema.
type Candidate struct {
	ID       string
	Distance float32
}

// Index stores vectors keyed by entry id.
//
// Implementations must reject vectors whose length differs from the fixed
// dimension the index was created with, and must treat Remove of an absent
// id as a no-op.
type Index interface {
	// Insert adds or replaces the vector for id.
	Insert(ctx context.Context, id string, vec []float32) error
	// Remove deletes the vector for id. Removing an absent id is not an error.
	Remove(ctx context.Context, id string) error
	// Search returns up to k candidates ordered by ascending distance.
	Search(ctx context.Context, vec []float32, k int) ([]Candidate, error)
	// Len reports the number of stored vectors.
	Len(ctx context.Context) (int, error)
	// Close releases any resources held by the index.
	Close() error
}
