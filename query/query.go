// Package query turns seed track ids into query vectors against one
// model artifact.
//
// The default aggregation is the centroid (arithmetic mean) of the seed
// rows: liked songs are treated as one region of taste. Strategies that
// need per-seed queries fan out with PerSeed and merge downstream.
package query

import (
	"fmt"
	"log/slog"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/distance"
)

// SeedsNotInModelError is returned when none of the requested seed ids
// exist in the artifact's id index. The request cannot produce a query
// and is not retryable without different input.
type SeedsNotInModelError struct {
	Model string
	Seeds []string
}

func (e *SeedsNotInModelError) Error() string {
	return fmt.Sprintf("none of %d seed track(s) exist in model %q", len(e.Seeds), e.Model)
}

// Options contains configuration options for the builder.
type Options struct {
	// Logger receives seed-drop warnings. Nil disables logging.
	Logger *slog.Logger
}

// Builder resolves seeds and builds query vectors. Safe for concurrent
// use; all state is read-only.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a query builder.
func NewBuilder(optFns ...func(o *Options)) *Builder {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Builder{logger: logger}
}

// Resolve deduplicates seeds (order-preserving) and maps them to rows of
// the artifact. Seeds absent from the artifact are dropped with a
// recorded warning and returned in dropped.
func (b *Builder) Resolve(seeds []string, art *artifact.Artifact) (rows []int32, dropped []string) {
	seen := make(map[string]struct{}, len(seeds))
	for _, id := range seeds {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		row, ok := art.Row(id)
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		rows = append(rows, row)
	}

	if len(dropped) > 0 {
		b.logger.Warn("seed tracks not in model",
			"model", art.Name(),
			"dropped", len(dropped),
			"resolved", len(rows),
		)
	}
	return rows, dropped
}

// Centroid builds the mean query vector over the resolved seed rows.
// It fails with SeedsNotInModelError when no seed resolves.
func (b *Builder) Centroid(seeds []string, art *artifact.Artifact) ([]float32, []int32, error) {
	rows, _ := b.Resolve(seeds, art)
	if len(rows) == 0 {
		return nil, nil, &SeedsNotInModelError{Model: art.Name(), Seeds: seeds}
	}

	vecs := make([][]float32, len(rows))
	for i, row := range rows {
		vecs[i] = art.Vector(row)
	}
	return distance.Centroid(vecs), rows, nil
}

// PerSeed builds one query vector per resolved seed, for fan-out
// strategies. Same drop and failure rules as Centroid.
func (b *Builder) PerSeed(seeds []string, art *artifact.Artifact) ([][]float32, []int32, error) {
	rows, _ := b.Resolve(seeds, art)
	if len(rows) == 0 {
		return nil, nil, &SeedsNotInModelError{Model: art.Name(), Seeds: seeds}
	}

	vecs := make([][]float32, len(rows))
	for i, row := range rows {
		// Copies: queries may outlive the caller's view of the artifact.
		v := make([]float32, art.Dim())
		copy(v, art.Vector(row))
		vecs[i] = v
	}
	return vecs, rows, nil
}

// ModalLabel returns the most frequent cluster label among the rows,
// breaking ties by the lowest label value. Rows without labels (or an
// artifact without labels) yield the noise label.
func ModalLabel(art *artifact.Artifact, rows []int32) int32 {
	if !art.HasLabels() || len(rows) == 0 {
		return artifact.NoiseLabel
	}

	counts := make(map[int32]int, len(rows))
	for _, row := range rows {
		counts[art.Label(row)]++
	}

	best := artifact.NoiseLabel
	bestCount := 0
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < best) {
			best = label
			bestCount = count
		}
	}
	return best
}
