package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/distance"
	"github.com/tracknova/recgo/query"
	"github.com/tracknova/recgo/simindex"
)

// audio_pca fixture on a line. Cluster 7 holds trackA..trackD; trackX
// (other cluster) and trackN (noise) sit closer to trackA than trackB
// does, so cluster-restricted runs must skip both.
func audioIndex(t *testing.T) *simindex.Index {
	t.Helper()

	a, err := artifact.New("audio_pca", artifact.KindAudioCluster, distance.MetricEuclidean,
		[][]float32{{0}, {1}, {2}, {6}, {0.4}, {0.5}},
		[]string{"trackA", "trackB", "trackC", "trackD", "trackX", "trackN"},
		[]int32{7, 7, 7, 7, 3, artifact.NoiseLabel}, nil)
	require.NoError(t, err)

	idx, err := simindex.New(a)
	require.NoError(t, err)
	return idx
}

func trackIDs(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.TrackID
	}
	return out
}

func TestRunCluster(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)

	items, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     StrategyCluster,
		Count:        2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"trackB", "trackC"}, trackIDs(items))
	for _, item := range items {
		assert.Equal(t, "audio_pca", item.SourceModel)
	}
}

func TestRunGlobal(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)

	items, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     StrategyGlobal,
		Count:        2,
	})
	require.NoError(t, err)
	// Unrestricted: the nearby other-cluster and noise rows win.
	assert.Equal(t, []string{"trackX", "trackN"}, trackIDs(items))
}

func TestRunSeedsNeverReturned(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)

	items, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackA", "trackB", "trackA"},
		Strategy:     StrategyGlobal,
		Count:        10,
	})
	require.NoError(t, err)
	for _, item := range items {
		assert.NotContains(t, []string{"trackA", "trackB"}, item.TrackID)
	}
}

func TestRunExcludeIDs(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)

	items, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     StrategyGlobal,
		Count:        2,
		ExcludeIDs:   []string{"trackX"},
	})
	require.NoError(t, err)
	assert.NotContains(t, trackIDs(items), "trackX")
	// Exclusions are applied before counting toward k.
	assert.Len(t, items, 2)
}

func TestRunNoiseSeedsFallBackToGlobal(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)

	clusterItems, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackN"},
		Strategy:     StrategyCluster,
		Count:        3,
	})
	require.NoError(t, err)

	globalItems, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackN"},
		Strategy:     StrategyGlobal,
		Count:        3,
	})
	require.NoError(t, err)
	assert.Equal(t, globalItems, clusterItems)
}

func TestRunHybrid(t *testing.T) {
	o := NewOrchestrator(func(opts *Options) { opts.Combiner = NewCombiner(0.7) })
	idx := audioIndex(t)
	art := idx.Artifact()

	items, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     StrategyHybrid,
		Count:        4,
	})
	require.NoError(t, err)
	require.Len(t, items, 4)

	byID := make(map[string]float64)
	for _, item := range items {
		byID[item.TrackID] = item.Score
	}

	w := 0.7

	// trackB is in both legs at distance 1: exact weighted blend.
	simB := float64(distance.Similarity(art.Metric(), 1))
	require.Contains(t, byID, "trackB")
	assert.Equal(t, w*simB+(1-w)*simB, byID["trackB"])

	// trackX appears only in the global leg (distance 0.4): scaled by
	// the global weight alone.
	simX := float64(distance.Similarity(art.Metric(), 0.4))
	require.Contains(t, byID, "trackX")
	assert.Equal(t, (1-w)*simX, byID["trackX"])
}

func TestRunDeterministic(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)
	req := Request{
		SeedTrackIDs: []string{"trackA", "trackB"},
		Strategy:     StrategyHybrid,
		Count:        3,
	}

	first, err := o.Run(context.Background(), idx, req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := o.Run(context.Background(), idx, req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRunValidation(t *testing.T) {
	o := NewOrchestrator()
	idx := audioIndex(t)

	t.Run("EmptySeeds", func(t *testing.T) {
		_, err := o.Run(context.Background(), idx, Request{Strategy: StrategyGlobal, Count: 5})
		assert.ErrorIs(t, err, ErrEmptySeeds)
	})

	t.Run("NonPositiveCount", func(t *testing.T) {
		_, err := o.Run(context.Background(), idx, Request{SeedTrackIDs: []string{"trackA"}, Strategy: StrategyGlobal})
		assert.ErrorIs(t, err, ErrInvalidCount)
	})

	t.Run("UnknownStrategy", func(t *testing.T) {
		_, err := o.Run(context.Background(), idx, Request{SeedTrackIDs: []string{"trackA"}, Strategy: Strategy(42), Count: 1})
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})

	t.Run("AllSeedsMissing", func(t *testing.T) {
		_, err := o.Run(context.Background(), idx, Request{SeedTrackIDs: []string{"nope"}, Strategy: StrategyGlobal, Count: 1})
		var snim *query.SeedsNotInModelError
		assert.ErrorAs(t, err, &snim)
	})
}

type fakeSource struct {
	cands []Candidate
	err   error
	seeds []string
}

func (f *fakeSource) Candidates(_ context.Context, _ Strategy, seeds []string) ([]Candidate, error) {
	f.seeds = seeds
	return f.cands, f.err
}

func TestRunCollaboratorStrategies(t *testing.T) {
	idx := audioIndex(t)

	t.Run("ShapedLikeAnyOtherList", func(t *testing.T) {
		src := &fakeSource{cands: []Candidate{
			{TrackID: "trackA", Score: 1.0}, // seed, must be excluded
			{TrackID: "other1", Score: 0.4},
			{TrackID: "other2", Score: 0.8},
			{TrackID: "other3", Score: 0.6},
		}}
		o := NewOrchestrator(func(opts *Options) { opts.Candidates = src })

		items, err := o.Run(context.Background(), idx, Request{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     StrategyArtist,
			Count:        2,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"other2", "other3"}, trackIDs(items))
		assert.Equal(t, []string{"trackA"}, src.seeds)
	})

	t.Run("NoSourceConfigured", func(t *testing.T) {
		o := NewOrchestrator()
		_, err := o.Run(context.Background(), idx, Request{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     StrategyGenre,
			Count:        2,
		})
		assert.ErrorIs(t, err, ErrNoCandidateSource)
	})

	t.Run("SourceErrorPropagates", func(t *testing.T) {
		boom := errors.New("catalog down")
		o := NewOrchestrator(func(opts *Options) {
			opts.Candidates = &fakeSource{err: boom}
		})
		_, err := o.Run(context.Background(), idx, Request{
			SeedTrackIDs: []string{"trackA"},
			Strategy:     StrategyGenre,
			Count:        2,
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestRunWithWorkerPool(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	o := NewOrchestrator(func(opts *Options) { opts.Pool = pool })
	idx := audioIndex(t)

	items, err := o.Run(context.Background(), idx, Request{
		SeedTrackIDs: []string{"trackA"},
		Strategy:     StrategyCluster,
		Count:        2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"trackB", "trackC"}, trackIDs(items))
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{
		"global":       StrategyGlobal,
		"cluster":      StrategyCluster,
		"hybrid":       StrategyHybrid,
		"artist_based": StrategyArtist,
		"genre_based":  StrategyGenre,
	} {
		got, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseStrategy("mood_based")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
