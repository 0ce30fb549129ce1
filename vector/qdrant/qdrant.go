// Package qdrant implements vector.Index on a Qdrant collection, for
// deployments where the cache index should live outside the process.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"nl2sql_cache/vector"
)

// Config holds connection and collection settings.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// DefaultConfig returns settings for a local Qdrant instance.
func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       6334,
		Collection: "nl2sql_semantic_cache",
	}
}

// Index is a Qdrant-backed vector index.
type Index struct {
	client     *qdrant.Client
	collection string
	dimensions int
	metric     vector.Metric
}

// New connects to Qdrant and ensures the collection exists with the given
// dimension and metric.
func New(cfg Config, dimensions int, metric vector.Metric) (*Index, error) {
	if err := metric.Validate(); err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("fail to create qdrant client: %w", err)
	}

	x := &Index{
		client:     client,
		collection: cfg.Collection,
		dimensions: dimensions,
		metric:     metric,
	}
	if err := x.ensureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("fail to create qdrant collection: %w", err)
	}
	return x, nil
}

func (x *Index) ensureCollection(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("fail to check if collection %s exists: %w", x.collection, err)
	}
	if exists {
		return nil
	}

	distance := qdrant.Distance_Cosine
	if x.metric == vector.MetricEuclidean {
		distance = qdrant.Distance_Euclid
	}
	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(x.dimensions),
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("fail to create collection: %w", err)
	}
	return nil
}

// Insert implements [vector.Index].
func (x *Index) Insert(ctx context.Context, id string, vec []float32) error {
	if len(vec) != x.dimensions {
		return fmt.Errorf("%w: got %d, index expects %d", vector.ErrDimensionMismatch, len(vec), x.dimensions)
	}
	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectorsDense(vec),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("fail to upsert qdrant point: %w", err)
	}
	return nil
}

// Remove implements [vector.Index]. Deleting an unknown point is a no-op on
// the Qdrant side, which matches the contract.
func (x *Index) Remove(ctx context.Context, id string) error {
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
	})
	if err != nil {
		return fmt.Errorf("fail to delete qdrant point: %w", err)
	}
	return nil
}

// Search implements [vector.Index].
func (x *Index) Search(ctx context.Context, vec []float32, k int) ([]vector.Candidate, error) {
	if len(vec) != x.dimensions {
		return nil, fmt.Errorf("%w: got %d, index expects %d", vector.ErrDimensionMismatch, len(vec), x.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          qdrant.PtrOf(uint64(k)),
	})
	if err != nil {
		return nil, fmt.Errorf("fail to search qdrant: %w", err)
	}

	candidates := make([]vector.Candidate, 0, len(points))
	for _, p := range points {
		candidates = append(candidates, vector.Candidate{
			ID:       p.Id.GetUuid(),
			Distance: x.toDistance(p.Score),
		})
	}
	return candidates, nil
}

// toDistance normalizes Qdrant scores so smaller always means closer: for
// cosine Qdrant reports similarity, for euclid it reports the distance.
func (x *Index) toDistance(score float32) float32 {
	if x.metric == vector.MetricCosine {
		return 1 - score
	}
	return score
}

// Len implements [vector.Index].
func (x *Index) Len(ctx context.Context) (int, error) {
	count, err := x.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: x.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("fail to count qdrant points: %w", err)
	}
	return int(count), nil
}

// Close implements [vector.Index].
func (x *Index) Close() error {
	return x.client.Close()
}
