// Package simindex answers nearest-neighbor queries over one model
// artifact, optionally restricted to a cluster.
//
// Search is a bounded, non-blocking computation over read-only data.
// A brute-force scan with a bounded max-heap is the baseline; artifacts
// that carry a precomputed coarse (IVF) index are probed instead of
// scanned. Cluster membership and row exclusions are tracked with roaring
// bitmaps.
package simindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/tracknova/recgo/artifact"
	"github.com/tracknova/recgo/distance"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// DimensionError indicates a query/artifact dimensionality mismatch.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Neighbor is one search hit: a row index and its raw distance under the
// artifact's metric.
type Neighbor struct {
	Row      int32
	Distance float32
}

// Options contains configuration options for the index.
type Options struct {
	// NProbe is the number of coarse centroids probed when the artifact
	// carries an IVF index. Ignored otherwise.
	NProbe int
}

// DefaultOptions contains the default index configuration.
var DefaultOptions = Options{
	NProbe: 8,
}

// Index wraps one artifact and answers nearest-neighbor queries.
// Safe for unsynchronized concurrent use.
type Index struct {
	art      *artifact.Artifact
	dist     distance.Func
	opts     Options
	clusters map[int32]*roaring.Bitmap
}

// New creates an index over the given artifact.
func New(art *artifact.Artifact, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.NProbe <= 0 {
		opts.NProbe = DefaultOptions.NProbe
	}

	dist, err := distance.Provider(art.Metric())
	if err != nil {
		return nil, err
	}

	idx := &Index{art: art, dist: dist, opts: opts}
	if art.HasLabels() {
		idx.clusters = make(map[int32]*roaring.Bitmap)
		for row := int32(0); row < int32(art.Len()); row++ {
			label := art.Label(row)
			if label == artifact.NoiseLabel {
				continue
			}
			bm, ok := idx.clusters[label]
			if !ok {
				bm = roaring.New()
				idx.clusters[label] = bm
			}
			bm.Add(uint32(row))
		}
	}

	return idx, nil
}

// Artifact returns the wrapped artifact.
func (idx *Index) Artifact() *artifact.Artifact { return idx.art }

// ClusterSize returns the number of non-noise rows carrying the label.
func (idx *Index) ClusterSize(label int32) int {
	bm, ok := idx.clusters[label]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Nearest returns up to k rows closest to query under the artifact's
// metric, ordered by ascending distance with ties broken by ascending
// row.
//
// Rows in exclude are skipped before counting toward k. When
// clusterFilter is non-nil only rows carrying that label are eligible;
// noise rows never are. Fewer than k eligible rows yield a short result,
// never padding.
func (idx *Index) Nearest(query []float32, k int, exclude *roaring.Bitmap, clusterFilter *int32) ([]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != idx.art.Dim() {
		return nil, &DimensionError{Expected: idx.art.Dim(), Actual: len(query)}
	}

	h := &resultHeap{items: make([]Neighbor, 0, k)}
	scan := func(row int32) {
		if exclude != nil && exclude.Contains(uint32(row)) {
			return
		}
		h.offer(Neighbor{Row: row, Distance: idx.dist(query, idx.art.Vector(row))}, k)
	}

	switch {
	case clusterFilter != nil:
		if *clusterFilter == artifact.NoiseLabel {
			return nil, nil
		}
		bm, ok := idx.clusters[*clusterFilter]
		if !ok {
			return nil, nil
		}
		it := bm.Iterator()
		for it.HasNext() {
			scan(int32(it.Next()))
		}
	case idx.art.IVF() != nil:
		for _, row := range idx.probe(query) {
			scan(row)
		}
	default:
		for row := int32(0); row < int32(idx.art.Len()); row++ {
			scan(row)
		}
	}

	out := make([]Neighbor, h.len())
	for i := h.len() - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out, nil
}

// probe selects the candidate rows from the nprobe centroids nearest to
// the query. The union is deduplicated; posting lists may overlap when
// the training pipeline assigns border rows to several cells.
func (idx *Index) probe(query []float32) []int32 {
	ivf := idx.art.IVF()

	type cell struct {
		i int
		d float32
	}
	cells := make([]cell, len(ivf.Centroids))
	for i, c := range ivf.Centroids {
		cells[i] = cell{i: i, d: idx.dist(query, c)}
	}
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].d != cells[b].d {
			return cells[a].d < cells[b].d
		}
		return cells[a].i < cells[b].i
	})

	nprobe := idx.opts.NProbe
	if nprobe > len(cells) {
		nprobe = len(cells)
	}

	seen := roaring.New()
	for _, c := range cells[:nprobe] {
		for _, row := range ivf.Postings[c.i] {
			seen.Add(uint32(row))
		}
	}

	out := make([]int32, 0, seen.GetCardinality())
	it := seen.Iterator()
	for it.HasNext() {
		out = append(out, int32(it.Next()))
	}
	return out
}
