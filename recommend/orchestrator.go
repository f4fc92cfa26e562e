package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/distance"
	"github.com/tracknova/recgo/query"
	"github.com/tracknova/recgo/simindex"
)

// Options contains configuration options for the orchestrator.
type Options struct {
	// Logger receives per-request structured logs. Nil disables logging.
	Logger *slog.Logger
	// Pool offloads the CPU-bound search step. Nil runs search inline.
	Pool *WorkerPool
	// Combiner blends the hybrid strategy's two legs. Nil uses the
	// default cluster weight.
	Combiner *Combiner
	// Candidates supplies collaborator candidates for the artist- and
	// genre-based strategies. Nil rejects those strategies.
	Candidates CandidateSource
}

// Orchestrator drives the query builder and similarity index for one
// model and one strategy, producing a ranked, deduplicated,
// seed-excluded list.
//
// Per request the pipeline is build-query → search → merge/dedup →
// exclude-seeds → truncate; the build step fails fast on requests that
// cannot produce a query. Safe for concurrent use.
type Orchestrator struct {
	builder    *query.Builder
	logger     *slog.Logger
	pool       *WorkerPool
	combiner   *Combiner
	candidates CandidateSource
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	combiner := opts.Combiner
	if combiner == nil {
		combiner = NewCombiner(DefaultClusterWeight)
	}

	return &Orchestrator{
		builder:    query.NewBuilder(func(o *query.Options) { o.Logger = logger }),
		logger:     logger,
		pool:       opts.Pool,
		combiner:   combiner,
		candidates: opts.Candidates,
	}
}

// Run executes one request against the model wrapped by idx.
func (o *Orchestrator) Run(ctx context.Context, idx *simindex.Index, req Request) ([]Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	art := idx.Artifact()
	logger := o.logger.With(
		"request_id", uuid.NewString(),
		"model", art.Name(),
		"strategy", req.Strategy.String(),
	)

	excludeSet := make(map[string]struct{}, len(req.SeedTrackIDs)+len(req.ExcludeIDs))
	for _, id := range req.SeedTrackIDs {
		excludeSet[id] = struct{}{}
	}
	for _, id := range req.ExcludeIDs {
		excludeSet[id] = struct{}{}
	}

	items, err := o.candidatesFor(ctx, idx, req, excludeSet)
	if err != nil {
		logger.Warn("recommendation failed", "error", err)
		return nil, err
	}

	out := shape(items, excludeSet, req.Count)
	logger.Debug("recommendation completed",
		"items", len(out),
		"duration", time.Since(start),
	)
	return out, nil
}

// candidatesFor produces the pre-shaping candidate lists for the
// request's strategy.
func (o *Orchestrator) candidatesFor(ctx context.Context, idx *simindex.Index, req Request, excludeSet map[string]struct{}) ([][]Item, error) {
	switch req.Strategy {
	case StrategyGlobal, StrategyCluster, StrategyHybrid:
		return o.embeddingCandidates(ctx, idx, req, excludeSet)
	case StrategyArtist, StrategyGenre:
		return o.collaboratorCandidates(ctx, idx, req)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, req.Strategy)
	}
}

func (o *Orchestrator) embeddingCandidates(ctx context.Context, idx *simindex.Index, req Request, excludeSet map[string]struct{}) ([][]Item, error) {
	art := idx.Artifact()

	centroid, seedRows, err := o.builder.Centroid(req.SeedTrackIDs, art)
	if err != nil {
		return nil, err
	}

	// Row-level exclusions are applied inside the index, before counting
	// toward k, so a full page of live candidates comes back.
	exclude := roaring.New()
	for _, row := range seedRows {
		exclude.Add(uint32(row))
	}
	for id := range excludeSet {
		if row, ok := art.Row(id); ok {
			exclude.Add(uint32(row))
		}
	}

	global := func() ([]Item, error) {
		return o.search(ctx, idx, centroid, req.Count, exclude, nil)
	}
	cluster := func() ([]Item, error) {
		label := query.ModalLabel(art, seedRows)
		if label == artifact.NoiseLabel {
			// Noise seeds define no cluster; documented global fallback.
			return global()
		}
		return o.search(ctx, idx, centroid, req.Count, exclude, &label)
	}

	switch req.Strategy {
	case StrategyCluster:
		items, err := cluster()
		if err != nil {
			return nil, err
		}
		return [][]Item{items}, nil
	case StrategyHybrid:
		clusterItems, err := cluster()
		if err != nil {
			return nil, err
		}
		globalItems, err := global()
		if err != nil {
			return nil, err
		}
		return [][]Item{o.combiner.Combine(clusterItems, globalItems)}, nil
	default:
		items, err := global()
		if err != nil {
			return nil, err
		}
		return [][]Item{items}, nil
	}
}

func (o *Orchestrator) collaboratorCandidates(ctx context.Context, idx *simindex.Index, req Request) ([][]Item, error) {
	if o.candidates == nil {
		return nil, ErrNoCandidateSource
	}

	seeds, _ := o.builder.Resolve(req.SeedTrackIDs, idx.Artifact())
	seedIDs := make([]string, len(seeds))
	for i, row := range seeds {
		seedIDs[i] = idx.Artifact().ID(row)
	}
	// Collaborator candidates do not depend on the embedding space, so a
	// request whose seeds are all absent from the model is still served
	// with the raw deduped seed list.
	if len(seedIDs) == 0 {
		seen := make(map[string]struct{}, len(req.SeedTrackIDs))
		for _, id := range req.SeedTrackIDs {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				seedIDs = append(seedIDs, id)
			}
		}
	}

	cands, err := o.candidates.Candidates(ctx, req.Strategy, seedIDs)
	if err != nil {
		return nil, fmt.Errorf("candidate source: %w", err)
	}

	items := make([]Item, len(cands))
	for i, c := range cands {
		items[i] = Item{TrackID: c.TrackID, Score: c.Score, SourceModel: idx.Artifact().Name()}
	}
	return [][]Item{items}, nil
}

// search runs one nearest-neighbor query, on the pool when configured,
// and converts raw distances into normalized similarity scores.
func (o *Orchestrator) search(ctx context.Context, idx *simindex.Index, q []float32, k int, exclude *roaring.Bitmap, clusterFilter *int32) ([]Item, error) {
	var (
		neighbors []simindex.Neighbor
		err       error
	)

	run := func() {
		neighbors, err = idx.Nearest(q, k, exclude, clusterFilter)
	}
	if o.pool != nil {
		if poolErr := o.pool.Do(ctx, run); poolErr != nil {
			return nil, poolErr
		}
	} else {
		run()
	}
	if err != nil {
		return nil, err
	}

	art := idx.Artifact()
	items := make([]Item, len(neighbors))
	for i, n := range neighbors {
		items[i] = Item{
			TrackID:     art.ID(n.Row),
			Score:       float64(distance.Similarity(art.Metric(), n.Distance)),
			SourceModel: art.Name(),
		}
	}
	return items, nil
}
