// Package compare runs one recommendation request against several models
// side by side.
//
// Model runs are independent: they share nothing mutable beyond the
// read-only registry, execute in parallel under a configurable limit,
// and a failure (or panic) in one run becomes that entry's error string
// while siblings complete normally.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tracknova/recgo/recommend"
	"github.com/tracknova/recgo/registry"
)

// ErrNoModels is returned when a comparison names no models.
var ErrNoModels = errors.New("no models to compare")

// Entry is one model's slot in a comparison. Err is empty on success; a
// populated Err never invalidates sibling entries.
type Entry struct {
	ModelName      string
	Items          []recommend.Item
	ProcessingTime time.Duration
	Err            string
}

// Result is a side-by-side comparison, entries ordered as requested.
type Result struct {
	Entries   []Entry
	TotalTime time.Duration
}

// Options contains configuration options for the comparer.
type Options struct {
	// Logger receives per-run logs. Nil disables logging.
	Logger *slog.Logger
	// Parallelism bounds concurrent model runs. Zero or negative means 4.
	Parallelism int
}

// Comparer aggregates orchestrator runs across models.
type Comparer struct {
	reg    *registry.Registry
	orch   *recommend.Orchestrator
	logger *slog.Logger
	limit  int
}

// New creates a comparer.
func New(reg *registry.Registry, orch *recommend.Orchestrator, optFns ...func(o *Options)) *Comparer {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}

	return &Comparer{
		reg:    reg,
		orch:   orch,
		logger: opts.Logger,
		limit:  opts.Parallelism,
	}
}

// Compare runs the request once per model name.
//
// Scores across models are nominally comparable through the shared
// normalization but not calibrated; each entry names its model so
// callers can consult the per-model metric.
func (c *Comparer) Compare(ctx context.Context, req recommend.Request, modelNames []string) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(modelNames) == 0 {
		return nil, ErrNoModels
	}

	start := time.Now()
	entries := make([]Entry, len(modelNames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, name := range modelNames {
		g.Go(func() error {
			entries[i] = c.run(gctx, name, req)
			return nil
		})
	}
	// Runs never return errors; failures live inside their entry.
	_ = g.Wait()

	result := &Result{Entries: entries, TotalTime: time.Since(start)}
	c.logger.Debug("comparison completed",
		"models", len(modelNames),
		"duration", result.TotalTime,
	)
	return result, nil
}

func (c *Comparer) run(ctx context.Context, name string, req recommend.Request) (entry Entry) {
	start := time.Now()
	entry.ModelName = name

	defer func() {
		entry.ProcessingTime = time.Since(start)
		if r := recover(); r != nil {
			entry.Items = nil
			entry.Err = fmt.Sprintf("panic: %v", r)
			c.logger.Error("model run panicked", "model", name, "panic", r)
		}
	}()

	model, err := c.reg.Get(ctx, name)
	if err != nil {
		entry.Err = err.Error()
		return entry
	}

	items, err := c.orch.Run(ctx, model.Index, req)
	if err != nil {
		entry.Err = err.Error()
		return entry
	}

	entry.Items = items
	return entry
}
