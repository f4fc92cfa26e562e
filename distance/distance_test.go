package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("euclidean")
	require.NoError(t, err)
	assert.Equal(t, MetricEuclidean, m)

	m, err = ParseMetric("cosine")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	_, err = ParseMetric("manhattan")
	assert.Error(t, err)
}

func TestEuclidean(t *testing.T) {
	d := Euclidean([]float32{0, 0}, []float32{3, 4})
	assert.InDelta(t, 5.0, d, 1e-6)
}

func TestCosine(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		d := Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
		assert.InDelta(t, 0.0, d, 1e-6)
	})

	t.Run("Orthogonal", func(t *testing.T) {
		d := Cosine([]float32{1, 0}, []float32{0, 1})
		assert.InDelta(t, 1.0, d, 1e-6)
	})

	t.Run("Opposite", func(t *testing.T) {
		d := Cosine([]float32{1, 0}, []float32{-1, 0})
		assert.InDelta(t, 2.0, d, 1e-6)
	})

	t.Run("ZeroNorm", func(t *testing.T) {
		d := Cosine([]float32{0, 0}, []float32{1, 2})
		assert.InDelta(t, 1.0, d, 1e-6)
	})
}

func TestSimilarity(t *testing.T) {
	t.Run("EuclideanZeroDistance", func(t *testing.T) {
		assert.InDelta(t, 1.0, Similarity(MetricEuclidean, 0), 1e-6)
	})

	t.Run("EuclideanDecreases", func(t *testing.T) {
		assert.Greater(t, Similarity(MetricEuclidean, 1), Similarity(MetricEuclidean, 2))
	})

	t.Run("CosineClamped", func(t *testing.T) {
		// Opposite vectors have distance 2; similarity clamps at 0.
		assert.Equal(t, float32(0), Similarity(MetricCosine, 2))
		assert.Equal(t, float32(1), Similarity(MetricCosine, -0.5))
	})

	t.Run("CosineLinear", func(t *testing.T) {
		assert.InDelta(t, 0.75, Similarity(MetricCosine, 0.25), 1e-6)
	})
}

func TestCentroid(t *testing.T) {
	c := Centroid([][]float32{{1, 2}, {3, 4}})
	assert.InDelta(t, 2.0, c[0], 1e-6)
	assert.InDelta(t, 3.0, c[1], 1e-6)

	// Single vector: centroid is a copy, not an alias.
	src := []float32{5, 6}
	c = Centroid([][]float32{src})
	c[0] = 99
	assert.Equal(t, float32(5), src[0])
}
