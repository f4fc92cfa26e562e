package recgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/blobstore"
	"github.com/tracknova/recgo/codec"
	"github.com/tracknova/recgo/config"
	"github.com/tracknova/recgo/distance"
	"github.com/tracknova/recgo/recommend"
	"github.com/tracknova/recgo/registry"
)

// testEngine wires an engine to an in-memory store holding two loadable
// models; "broken" is configured but its bundle is absent.
func testEngine(t *testing.T, optFns ...Option) *Engine {
	t.Helper()

	store := blobstore.NewMemoryStore()
	put := func(name string, kind artifact.Kind, metric distance.Metric, labels []int32) {
		art, err := artifact.New(name, kind, metric,
			[][]float32{{0, 1}, {1, 1}, {1, 0}, {5, 5}},
			[]string{"trackA", "trackB", "trackC", "trackD"}, labels, nil)
		require.NoError(t, err)
		data, err := artifact.Encode(art, codec.GoJSON{}, artifact.CompressionZstd)
		require.NoError(t, err)
		store.Put(name+".bundle", data)
	}
	put("audio_pca", artifact.KindAudioCluster, distance.MetricEuclidean, []int32{0, 0, 0, 1})
	put("lyrics_tfidf", artifact.KindLyrics, distance.MetricCosine, nil)

	cfg := config.Default()
	cfg.Store.Backend = "memory"
	cfg.Models = map[string]config.ModelConfig{
		"audio_pca":    {Source: "audio_pca.bundle"},
		"lyrics_tfidf": {Source: "lyrics_tfidf.bundle"},
		"broken":       {Source: "broken.bundle"},
	}
	cfg.Defaults.AudioModel = "audio_pca"
	cfg.Defaults.LyricsModel = "lyrics_tfidf"

	eng, err := New(cfg, append([]Option{WithStore(store)}, optFns...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	t.Run("ExplicitModel", func(t *testing.T) {
		eng := testEngine(t)
		out, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     recommend.StrategyGlobal,
			Count:        2,
			Model:        "audio_pca",
		})
		require.NoError(t, err)
		assert.Equal(t, "audio_pca", out.ModelUsed)
		assert.Len(t, out.Items, 2)
		for _, item := range out.Items {
			assert.NotEqual(t, "trackA", item.TrackID)
			assert.Equal(t, "audio_pca", item.SourceModel)
		}
	})

	t.Run("KindDefaultActivatesConfiguredModel", func(t *testing.T) {
		eng := testEngine(t)

		_, ok := eng.ActiveModel(artifact.KindAudioCluster)
		assert.False(t, ok)

		out, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackB"},
			Strategy:     recommend.StrategyCluster,
			Count:        3,
		})
		require.NoError(t, err)
		assert.Equal(t, "audio_pca", out.ModelUsed)

		name, ok := eng.ActiveModel(artifact.KindAudioCluster)
		require.True(t, ok)
		assert.Equal(t, "audio_pca", name)
	})

	t.Run("LyricsKindDefault", func(t *testing.T) {
		eng := testEngine(t)
		out, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     recommend.StrategyGlobal,
			Count:        1,
			Kind:         artifact.KindLyrics,
		})
		require.NoError(t, err)
		assert.Equal(t, "lyrics_tfidf", out.ModelUsed)
	})

	t.Run("InvalidRequest", func(t *testing.T) {
		eng := testEngine(t)
		_, err := eng.Recommend(ctx, RecommendInput{
			Strategy: recommend.StrategyGlobal,
			Count:    5,
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		_, err = eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     recommend.StrategyGlobal,
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("UnknownStrategy", func(t *testing.T) {
		eng := testEngine(t)
		_, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     recommend.Strategy(99),
			Count:        1,
			Model:        "audio_pca",
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})

	t.Run("UnknownModel", func(t *testing.T) {
		eng := testEngine(t)
		_, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     recommend.StrategyGlobal,
			Count:        1,
			Model:        "ghost",
		})
		assert.ErrorIs(t, err, ErrUnknownModel)
	})

	t.Run("LoadFailure", func(t *testing.T) {
		eng := testEngine(t)
		_, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     recommend.StrategyGlobal,
			Count:        1,
			Model:        "broken",
		})
		var mle *ModelLoadError
		require.ErrorAs(t, err, &mle)
		assert.Equal(t, "broken", mle.Model)
	})

	t.Run("SeedsNotInModel", func(t *testing.T) {
		eng := testEngine(t)
		_, err := eng.Recommend(ctx, RecommendInput{
			SeedTrackIDs: []string{"no-such-track"},
			Strategy:     recommend.StrategyGlobal,
			Count:        1,
			Model:        "audio_pca",
		})
		var snm *SeedNotInModelError
		require.ErrorAs(t, err, &snm)
		assert.Equal(t, "audio_pca", snm.Model)
		assert.Equal(t, []string{"no-such-track"}, snm.Seeds)
	})
}

func TestNoActiveModel(t *testing.T) {
	eng := testEngine(t)
	eng.cfg.Defaults.AudioModel = ""

	_, err := eng.Recommend(context.Background(), RecommendInput{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     recommend.StrategyGlobal,
		Count:        1,
	})
	assert.ErrorIs(t, err, ErrNoActiveModel)
}

func TestCompareAllConfiguredModels(t *testing.T) {
	eng := testEngine(t)

	res, err := eng.Compare(context.Background(), CompareInput{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     recommend.StrategyGlobal,
		Count:        3,
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	byName := map[string]int{}
	for i, e := range res.Entries {
		byName[e.ModelName] = i
	}
	assert.NotEmpty(t, res.Entries[byName["audio_pca"]].Items)
	assert.NotEmpty(t, res.Entries[byName["lyrics_tfidf"]].Items)
	assert.NotEmpty(t, res.Entries[byName["broken"]].Err)
	assert.Empty(t, res.Entries[byName["broken"]].Items)
}

func TestSwitchModel(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	status, err := eng.SwitchModel(ctx, "audio_pca")
	require.NoError(t, err)
	assert.Equal(t, registry.StatusReady, status)
	name, ok := eng.ActiveModel(artifact.KindAudioCluster)
	require.True(t, ok)
	assert.Equal(t, "audio_pca", name)

	// A failed switch leaves the active model untouched.
	status, err = eng.SwitchModel(ctx, "broken")
	require.Error(t, err)
	assert.Equal(t, registry.StatusFailed, status)

	name, ok = eng.ActiveModel(artifact.KindAudioCluster)
	require.True(t, ok)
	assert.Equal(t, "audio_pca", name)
}

func TestEngineClose(t *testing.T) {
	eng := testEngine(t)
	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	_, err := eng.Recommend(context.Background(), RecommendInput{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     recommend.StrategyGlobal,
		Count:        1,
	})
	assert.ErrorIs(t, err, ErrEngineClosed)

	_, err = eng.Compare(context.Background(), CompareInput{})
	assert.ErrorIs(t, err, ErrEngineClosed)

	_, err = eng.SwitchModel(context.Background(), "audio_pca")
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestMetricsCollection(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	eng := testEngine(t, WithMetricsCollector(metrics))
	ctx := context.Background()

	_, err := eng.Recommend(ctx, RecommendInput{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     recommend.StrategyGlobal,
		Count:        1,
		Model:        "audio_pca",
	})
	require.NoError(t, err)

	_, err = eng.Recommend(ctx, RecommendInput{Strategy: recommend.StrategyGlobal, Count: 1})
	require.Error(t, err)

	_, err = eng.SwitchModel(ctx, "lyrics_tfidf")
	require.NoError(t, err)
	_, err = eng.SwitchModel(ctx, "broken")
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.RecommendCount)
	assert.Equal(t, int64(1), stats.RecommendErrors)
	assert.Equal(t, int64(2), stats.SwitchCount)
	assert.Equal(t, int64(1), stats.SwitchErrors)
	// Loads: audio_pca, lyrics_tfidf, broken (failed).
	assert.Equal(t, int64(3), stats.LoadCount)
	assert.Equal(t, int64(1), stats.LoadErrors)
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Hybrid.ClusterWeight = 2

	_, err := New(cfg)
	assert.ErrorContains(t, err, "cluster_weight")
}
