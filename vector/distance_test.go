package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	// Zero vectors are maximally distant.
	assert.InDelta(t, 1, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-6)
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 0, EuclideanDistance([]float32{1, 2}, []float32{1, 2}), 1e-6)
	assert.InDelta(t, 5, EuclideanDistance([]float32{0, 0}, []float32{3, 4}), 1e-6)
}

func TestMetricValidate(t *testing.T) {
	assert.NoError(t, MetricCosine.Validate())
	assert.NoError(t, MetricEuclidean.Validate())
	assert.Error(t, Metric("manhattan").Validate())
}

func TestMetricWithin(t *testing.T) {
	// Cosine: threshold is a minimum similarity.
	assert.True(t, MetricCosine.Within(0.95, 0.02))
	assert.False(t, MetricCosine.Within(0.95, 0.2))
	// Euclidean: threshold is a maximum distance.
	assert.True(t, MetricEuclidean.Within(0.15, 0.02))
	assert.False(t, MetricEuclidean.Within(0.15, 0.2))
}
