// Package recgo provides a multi-model music recommendation engine for Go.
//
// Recgo serves track recommendations from immutable, precomputed model
// artifacts (embedding matrices with track ids, cluster labels, and an
// optional coarse neighbor index) with production-ready features including:
//
//   - Multiple recommendation strategies: cluster-based, global, hybrid,
//     and collaborator-backed artist/genre candidates
//   - Side-by-side multi-model comparison with per-model failure isolation
//   - Lazy single-flight model loading with an LRU-capped registry
//   - Atomic active-model switching per artifact kind
//   - Pluggable bundle stores: local filesystem, in-memory, S3, MinIO
//   - Self-describing bundle format with zstd/lz4 compression
//
// # Quick Start
//
// Load configuration and serve a recommendation:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    panic(err)
//	}
//	eng, err := recgo.New(cfg, recgo.WithLogLevel(slog.LevelInfo))
//	if err != nil {
//	    panic(err)
//	}
//	defer eng.Close()
//
//	out, err := eng.Recommend(ctx, recgo.RecommendInput{
//	    SeedTrackIDs: []string{"track:4uLU6hMC"},
//	    Strategy:     recommend.StrategyHybrid,
//	    Count:        10,
//	})
//
// Compare several model variants on the same seeds:
//
//	res, err := eng.Compare(ctx, recgo.CompareInput{
//	    SeedTrackIDs: []string{"track:4uLU6hMC"},
//	    Strategy:     recommend.StrategyCluster,
//	    Count:        10,
//	    Models:       []string{"audio_pca", "audio_umap", "lyrics_tfidf"},
//	})
package recgo

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/blobstore"
	"github.com/tracknova/recgo/blobstore/miniostore"
	s3store "github.com/tracknova/recgo/blobstore/s3"
	"github.com/tracknova/recgo/compare"
	"github.com/tracknova/recgo/config"
	"github.com/tracknova/recgo/recommend"
	"github.com/tracknova/recgo/registry"
	"github.com/tracknova/recgo/simindex"
)

// RecommendInput is one recommendation request.
type RecommendInput struct {
	// SeedTrackIDs is the ordered seed list.
	SeedTrackIDs []string
	// Strategy selects the candidate source.
	Strategy recommend.Strategy
	// Count is the maximum number of items returned.
	Count int
	// ExcludeIDs are removed from results before counting toward Count.
	ExcludeIDs []string
	// Model names the model variant explicitly. Empty selects the
	// active model of Kind.
	Model string
	// Kind selects the active model when Model is empty. The zero
	// value is the audio-cluster kind.
	Kind artifact.Kind
}

// RecommendOutput is one recommendation response.
type RecommendOutput struct {
	Items          []recommend.Item
	ModelUsed      string
	ProcessingTime time.Duration
}

// CompareInput is one side-by-side comparison request.
type CompareInput struct {
	SeedTrackIDs []string
	Strategy     recommend.Strategy
	Count        int
	ExcludeIDs   []string
	// Models names the compared variants. Empty compares every
	// configured model.
	Models []string
}

// Engine is the top-level recommendation engine facade.
// Safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	logger   *Logger
	metrics  MetricsCollector
	reg      *registry.Registry
	orch     *recommend.Orchestrator
	comparer *compare.Comparer
	pool     *recommend.WorkerPool
	closed   atomic.Bool
}

// New creates an engine from the given configuration.
//
// Models are not loaded eagerly; the first request against a model
// triggers a single-flight bundle load.
func New(cfg *config.Config, optFns ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(optFns)

	store := o.store
	if store == nil {
		var err error
		store, err = buildStore(cfg.Store)
		if err != nil {
			return nil, err
		}
	}

	eng := &Engine{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}

	observer := o.registryObserver
	if observer == nil {
		observer = &registryMetricsBridge{metrics: o.metricsCollector}
	}

	loader := registry.BundleLoader(store, cfg.Sources(), func(io *simindex.Options) {
		io.NProbe = cfg.Search.NProbe
	})
	eng.reg = registry.New(loader, func(ro *registry.Options) {
		ro.Logger = o.logger.Logger
		ro.Observer = observer
		ro.MaxLoaded = cfg.Registry.MaxLoaded
		ro.MaxConcurrentLoads = int64(cfg.Registry.MaxConcurrentLoads)
		ro.RetryInterval = cfg.Registry.RetryInterval
	})

	eng.pool = recommend.NewWorkerPool(cfg.Workers.SearchWorkers)
	eng.orch = recommend.NewOrchestrator(func(oo *recommend.Options) {
		oo.Logger = o.logger.Logger
		oo.Pool = eng.pool
		oo.Combiner = recommend.NewCombiner(cfg.Hybrid.ClusterWeight)
		oo.Candidates = o.candidates
	})
	eng.comparer = compare.New(eng.reg, eng.orch, func(co *compare.Options) {
		co.Logger = o.logger.Logger
		co.Parallelism = cfg.Workers.CompareParallelism
	})

	return eng, nil
}

// Recommend serves one recommendation request.
func (e *Engine) Recommend(ctx context.Context, in RecommendInput) (*RecommendOutput, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	start := time.Now()
	out, err := e.recommend(ctx, in)

	duration := time.Since(start)
	e.metrics.RecordRecommend(in.Strategy.String(), duration, err)

	model := in.Model
	items := 0
	if out != nil {
		model = out.ModelUsed
		items = len(out.Items)
	}
	e.logger.LogRecommend(ctx, model, in.Strategy.String(), items, duration, err)

	if err != nil {
		return nil, translateError(err)
	}
	out.ProcessingTime = duration
	return out, nil
}

func (e *Engine) recommend(ctx context.Context, in RecommendInput) (*RecommendOutput, error) {
	req := recommend.Request{
		SeedTrackIDs: in.SeedTrackIDs,
		Strategy:     in.Strategy,
		Count:        in.Count,
		ExcludeIDs:   in.ExcludeIDs,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model, err := e.resolveModel(ctx, in.Model, in.Kind)
	if err != nil {
		return nil, err
	}

	items, err := e.orch.Run(ctx, model.Index, req)
	if err != nil {
		return nil, err
	}

	return &RecommendOutput{
		Items:     items,
		ModelUsed: model.Art.Name(),
	}, nil
}

// resolveModel returns the explicitly named model, or the active model
// of the given kind, activating the configured default on first use.
func (e *Engine) resolveModel(ctx context.Context, name string, kind artifact.Kind) (*registry.Model, error) {
	if name != "" {
		return e.reg.Get(ctx, name)
	}

	if m, ok := e.reg.Active(kind); ok {
		return m, nil
	}

	def := e.defaultModel(kind)
	if def == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveModel, kind)
	}
	return e.reg.SwitchActive(ctx, def)
}

func (e *Engine) defaultModel(kind artifact.Kind) string {
	if kind == artifact.KindLyrics {
		return e.cfg.Defaults.LyricsModel
	}
	return e.cfg.Defaults.AudioModel
}

// Compare runs the same request against several models side by side.
// Individual model failures land in their entries; Compare itself only
// fails on invalid requests or an empty model list.
func (e *Engine) Compare(ctx context.Context, in CompareInput) (*compare.Result, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	req := recommend.Request{
		SeedTrackIDs: in.SeedTrackIDs,
		Strategy:     in.Strategy,
		Count:        in.Count,
		ExcludeIDs:   in.ExcludeIDs,
	}

	models := in.Models
	if len(models) == 0 {
		models = e.Models()
	}

	res, err := e.comparer.Compare(ctx, req, models)
	if err != nil {
		return nil, translateError(err)
	}

	failed := 0
	for _, entry := range res.Entries {
		if entry.Err != "" {
			failed++
		}
	}
	e.metrics.RecordCompare(len(models), failed, res.TotalTime)
	e.logger.LogCompare(ctx, len(models), failed, res.TotalTime)

	return res, nil
}

// SwitchModel makes the named model the active one for its kind and
// reports the resulting lifecycle status. The switch is atomic:
// requests in flight keep the model they resolved, and a failed load
// leaves the previous active model in place.
func (e *Engine) SwitchModel(ctx context.Context, name string) (registry.Status, error) {
	if e.closed.Load() {
		return registry.StatusUnloaded, ErrEngineClosed
	}

	_, err := e.reg.SwitchActive(ctx, name)
	e.metrics.RecordModelSwitch(name, err)
	e.logger.LogSwitch(ctx, name, err)
	return e.reg.Status(name), translateError(err)
}

// ModelStatus reports the lifecycle state of a named model.
func (e *Engine) ModelStatus(name string) registry.Status {
	return e.reg.Status(name)
}

// ActiveModel returns the name of the active model for a kind, or
// false when none is active yet.
func (e *Engine) ActiveModel(kind artifact.Kind) (string, bool) {
	m, ok := e.reg.Active(kind)
	if !ok {
		return "", false
	}
	return m.Art.Name(), true
}

// Models lists the configured model names, sorted.
func (e *Engine) Models() []string {
	names := make([]string, 0, len(e.cfg.Models))
	for name := range e.cfg.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases resources held by this Engine instance.
func (e *Engine) Close() error {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.pool.Close()
	return nil
}

func buildStore(cfg config.StoreConfig) (blobstore.Store, error) {
	switch cfg.Backend {
	case "local":
		return blobstore.NewLocalStore(cfg.Root), nil
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		return s3store.NewStoreFromEnv(context.Background(), cfg.Bucket, cfg.Prefix, cfg.Region)
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

// registryMetricsBridge forwards registry load events to the engine's
// MetricsCollector.
type registryMetricsBridge struct {
	metrics MetricsCollector
}

var _ registry.MetricsObserver = (*registryMetricsBridge)(nil)

func (b *registryMetricsBridge) OnLoad(name string, duration time.Duration, tracks int, err error) {
	b.metrics.RecordModelLoad(name, duration, err)
}

func (b *registryMetricsBridge) OnEvict(string) {}
