package compare

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/blobstore"
	"github.com/tracknova/recgo/codec"
	"github.com/tracknova/recgo/distance"
	"github.com/tracknova/recgo/recommend"
	"github.com/tracknova/recgo/registry"
)

// Two loadable models sharing trackA plus one source that always fails.
func testComparer(t *testing.T) *Comparer {
	t.Helper()

	store := blobstore.NewMemoryStore()
	put := func(name string, kind artifact.Kind, metric distance.Metric, labels []int32) {
		art, err := artifact.New(name, kind, metric,
			[][]float32{{0, 1}, {1, 1}, {1, 0}},
			[]string{"trackA", "trackB", "trackC"}, labels, nil)
		require.NoError(t, err)
		data, err := artifact.Encode(art, codec.GoJSON{}, artifact.CompressionZstd)
		require.NoError(t, err)
		store.Put(name+".bundle", data)
	}
	put("audio_pca", artifact.KindAudioCluster, distance.MetricEuclidean, []int32{0, 0, 0})
	put("lyrics_tfidf", artifact.KindLyrics, distance.MetricCosine, nil)

	reg := registry.New(registry.BundleLoader(store, map[string]string{
		"audio_pca":    "audio_pca.bundle",
		"lyrics_tfidf": "lyrics_tfidf.bundle",
		"corrupt":      "corrupt.bundle",
	}))

	return New(reg, recommend.NewOrchestrator())
}

func TestCompare(t *testing.T) {
	c := testComparer(t)
	req := recommend.Request{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     recommend.StrategyGlobal,
		Count:        5,
	}

	t.Run("SideBySide", func(t *testing.T) {
		res, err := c.Compare(context.Background(), req, []string{"audio_pca", "lyrics_tfidf"})
		require.NoError(t, err)
		require.Len(t, res.Entries, 2)

		assert.Equal(t, "audio_pca", res.Entries[0].ModelName)
		assert.Equal(t, "lyrics_tfidf", res.Entries[1].ModelName)
		for _, e := range res.Entries {
			assert.Empty(t, e.Err)
			assert.NotEmpty(t, e.Items)
			assert.GreaterOrEqual(t, e.ProcessingTime, time.Duration(0))
		}
		assert.GreaterOrEqual(t, res.TotalTime, res.Entries[0].ProcessingTime)
	})

	t.Run("FailureIsolation", func(t *testing.T) {
		res, err := c.Compare(context.Background(), req, []string{"audio_pca", "missing_model"})
		require.NoError(t, err)
		require.Len(t, res.Entries, 2)

		assert.Empty(t, res.Entries[0].Err)
		assert.NotEmpty(t, res.Entries[0].Items)

		assert.Equal(t, "missing_model", res.Entries[1].ModelName)
		assert.NotEmpty(t, res.Entries[1].Err)
		assert.Empty(t, res.Entries[1].Items)
	})

	t.Run("OrderIndependence", func(t *testing.T) {
		forward, err := c.Compare(context.Background(), req, []string{"audio_pca", "lyrics_tfidf"})
		require.NoError(t, err)
		reversed, err := c.Compare(context.Background(), req, []string{"lyrics_tfidf", "audio_pca"})
		require.NoError(t, err)

		assert.Equal(t, forward.Entries[0].Items, reversed.Entries[1].Items)
		assert.Equal(t, forward.Entries[1].Items, reversed.Entries[0].Items)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := c.Compare(context.Background(), recommend.Request{Strategy: recommend.StrategyGlobal, Count: 5}, []string{"audio_pca"})
		assert.ErrorIs(t, err, recommend.ErrEmptySeeds)

		_, err = c.Compare(context.Background(), req, nil)
		assert.ErrorIs(t, err, ErrNoModels)
	})
}
