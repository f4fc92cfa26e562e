package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/distance"
)

func fixture(t *testing.T) *artifact.Artifact {
	t.Helper()

	a, err := artifact.New("audio_pca", artifact.KindAudioCluster, distance.MetricEuclidean,
		[][]float32{{0, 0}, {2, 2}, {4, 0}},
		[]string{"trackA", "trackB", "trackC"},
		[]int32{7, 7, artifact.NoiseLabel}, nil)
	require.NoError(t, err)
	return a
}

func TestResolve(t *testing.T) {
	b := NewBuilder()
	art := fixture(t)

	t.Run("DeduplicatesPreservingOrder", func(t *testing.T) {
		rows, dropped := b.Resolve([]string{"trackB", "trackA", "trackB", "trackA"}, art)
		assert.Equal(t, []int32{1, 0}, rows)
		assert.Empty(t, dropped)
	})

	t.Run("DropsUnknown", func(t *testing.T) {
		rows, dropped := b.Resolve([]string{"trackA", "ghost"}, art)
		assert.Equal(t, []int32{0}, rows)
		assert.Equal(t, []string{"ghost"}, dropped)
	})
}

func TestCentroid(t *testing.T) {
	b := NewBuilder()
	art := fixture(t)

	t.Run("Mean", func(t *testing.T) {
		q, rows, err := b.Centroid([]string{"trackA", "trackB"}, art)
		require.NoError(t, err)
		assert.Equal(t, []int32{0, 1}, rows)
		assert.InDelta(t, 1.0, q[0], 1e-6)
		assert.InDelta(t, 1.0, q[1], 1e-6)
	})

	t.Run("AllSeedsUnknown", func(t *testing.T) {
		_, _, err := b.Centroid([]string{"x", "y"}, art)
		var snim *SeedsNotInModelError
		require.ErrorAs(t, err, &snim)
		assert.Equal(t, "audio_pca", snim.Model)
	})
}

func TestPerSeed(t *testing.T) {
	b := NewBuilder()
	art := fixture(t)

	vecs, rows, err := b.PerSeed([]string{"trackC", "trackA"}, art)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 0}, rows)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{4, 0}, vecs[0])

	// Returned vectors are copies, not artifact aliases.
	vecs[0][0] = 99
	assert.Equal(t, float32(4), art.Vector(2)[0])
}

func TestModalLabel(t *testing.T) {
	art := fixture(t)

	t.Run("MostFrequent", func(t *testing.T) {
		assert.Equal(t, int32(7), ModalLabel(art, []int32{0, 1, 2}))
	})

	t.Run("TieGoesToLowestLabel", func(t *testing.T) {
		// One vote each for 7 and -1: noise wins the tie.
		assert.Equal(t, artifact.NoiseLabel, ModalLabel(art, []int32{0, 2}))
	})

	t.Run("NoLabels", func(t *testing.T) {
		plain, err := artifact.New("lyrics_tfidf", artifact.KindLyrics, distance.MetricCosine,
			[][]float32{{1, 0}}, []string{"trackA"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, artifact.NoiseLabel, ModalLabel(plain, []int32{0}))
	})
}
