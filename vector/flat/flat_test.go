package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nl2sql_cache/vector"
)

func TestNewValidation(t *testing.T) {
	_, err := New(0, vector.MetricCosine)
	assert.Error(t, err)
	_, err = New(3, vector.Metric("bogus"))
	assert.Error(t, err)
}

func TestInsertDimensionMismatch(t *testing.T) {
	x, err := New(3, vector.MetricEuclidean)
	require.NoError(t, err)

	err = x.Insert(context.Background(), "a", []float32{1, 2})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)

	_, err = x.Search(context.Background(), []float32{1, 2}, 1)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestSearchOrdering(t *testing.T) {
	ctx := context.Background()
	x, err := New(2, vector.MetricEuclidean)
	require.NoError(t, err)

	require.NoError(t, x.Insert(ctx, "near", []float32{1, 1}))
	require.NoError(t, x.Insert(ctx, "nearer", []float32{0.5, 0.5}))
	require.NoError(t, x.Insert(ctx, "far", []float32{10, 10}))

	got, err := x.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "nearer", got[0].ID)
	assert.Equal(t, "near", got[1].ID)
	assert.Less(t, got[0].Distance, got[1].Distance)
}

func TestSearchFewerThanK(t *testing.T) {
	ctx := context.Background()
	x, err := New(2, vector.MetricCosine)
	require.NoError(t, err)

	require.NoError(t, x.Insert(ctx, "only", []float32{1, 0}))
	got, err := x.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestInsertReplaces(t *testing.T) {
	ctx := context.Background()
	x, err := New(2, vector.MetricEuclidean)
	require.NoError(t, err)

	require.NoError(t, x.Insert(ctx, "a", []float32{10, 10}))
	require.NoError(t, x.Insert(ctx, "a", []float32{0, 0}))

	n, err := x.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := x.Search(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
}

func TestRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	x, err := New(2, vector.MetricCosine)
	require.NoError(t, err)

	require.NoError(t, x.Insert(ctx, "a", []float32{1, 0}))
	require.NoError(t, x.Remove(ctx, "a"))
	require.NoError(t, x.Remove(ctx, "a"))
	require.NoError(t, x.Remove(ctx, "never-existed"))

	n, err := x.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertCopiesVector(t *testing.T) {
	ctx := context.Background()
	x, err := New(2, vector.MetricEuclidean)
	require.NoError(t, err)

	vec := []float32{1, 1}
	require.NoError(t, x.Insert(ctx, "a", vec))
	vec[0] = 100

	got, err := x.Search(ctx, []float32{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
}
