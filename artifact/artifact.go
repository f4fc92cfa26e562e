// Package artifact defines the immutable model artifact the engine
// consumes: an embedding matrix, an id↔row mapping, optional cluster
// labels, and an optional precomputed coarse neighbor index.
//
// Artifacts are produced by the offline training pipeline, decoded from
// versioned bundle files, validated once at load time and never mutated
// afterwards. Unsynchronized concurrent reads are safe.
package artifact

import (
	"fmt"

	"github.com/tracknova/recgo/distance"
)

// NoiseLabel marks a row HDBSCAN left unclustered. Noise rows are never
// eligible for cluster-restricted search.
const NoiseLabel int32 = -1

// Kind identifies the family of model an artifact belongs to.
type Kind int

const (
	// KindAudioCluster covers the HDBSCAN variants over audio feature
	// transforms. These artifacts carry cluster labels.
	KindAudioCluster Kind = iota
	// KindLyrics covers the lyrics TF-IDF/SVD similarity models.
	KindLyrics
)

func (k Kind) String() string {
	switch k {
	case KindAudioCluster:
		return "audio_cluster"
	case KindLyrics:
		return "lyrics"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseKind resolves a kind by its stable name as recorded in bundles.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "audio_cluster":
		return KindAudioCluster, nil
	case "lyrics":
		return KindLyrics, nil
	default:
		return 0, fmt.Errorf("unsupported artifact kind: %q", name)
	}
}

// IVF is a precomputed coarse neighbor index: rows are assigned to the
// nearest of a small set of centroids, and search probes only the
// postings of the centroids closest to the query. When an artifact
// carries no IVF, search falls back to a brute-force scan.
type IVF struct {
	Centroids [][]float32
	Postings  [][]int32
}

// Artifact is an immutable model bundle resident in memory.
type Artifact struct {
	name    string
	kind    Kind
	metric  distance.Metric
	dim     int
	vectors [][]float32
	ids     []string
	rowByID map[string]int32
	labels  []int32
	ivf     *IVF
}

// New assembles and validates an artifact.
//
// The invariants checked here are load-time fatal by design: a shape
// mismatch must surface as a failed load, never as a runtime error.
func New(name string, kind Kind, metric distance.Metric, vectors [][]float32, ids []string, labels []int32, ivf *IVF) (*Artifact, error) {
	if name == "" {
		return nil, fmt.Errorf("artifact name must not be empty")
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("artifact %s: empty embedding matrix", name)
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("artifact %s: %d ids for %d rows", name, len(ids), len(vectors))
	}
	if labels != nil && len(labels) != len(vectors) {
		return nil, fmt.Errorf("artifact %s: %d labels for %d rows", name, len(labels), len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("artifact %s: zero-dimensional vectors", name)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("artifact %s: row %d has dimension %d, want %d", name, i, len(v), dim)
		}
	}

	rowByID := make(map[string]int32, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("artifact %s: empty track id at row %d", name, i)
		}
		if prev, ok := rowByID[id]; ok {
			return nil, fmt.Errorf("artifact %s: track id %q at rows %d and %d", name, id, prev, i)
		}
		rowByID[id] = int32(i)
	}

	if ivf != nil {
		if len(ivf.Centroids) == 0 || len(ivf.Centroids) != len(ivf.Postings) {
			return nil, fmt.Errorf("artifact %s: ivf has %d centroids and %d posting lists", name, len(ivf.Centroids), len(ivf.Postings))
		}
		for i, c := range ivf.Centroids {
			if len(c) != dim {
				return nil, fmt.Errorf("artifact %s: ivf centroid %d has dimension %d, want %d", name, i, len(c), dim)
			}
		}
		for i, rows := range ivf.Postings {
			for _, row := range rows {
				if row < 0 || int(row) >= len(vectors) {
					return nil, fmt.Errorf("artifact %s: ivf posting list %d references row %d (have %d rows)", name, i, row, len(vectors))
				}
			}
		}
	}

	return &Artifact{
		name:    name,
		kind:    kind,
		metric:  metric,
		dim:     dim,
		vectors: vectors,
		ids:     ids,
		rowByID: rowByID,
		labels:  labels,
		ivf:     ivf,
	}, nil
}

// Name returns the unique artifact name.
func (a *Artifact) Name() string { return a.name }

// Kind returns the artifact kind.
func (a *Artifact) Kind() Kind { return a.kind }

// Metric returns the distance metric the artifact was trained under.
func (a *Artifact) Metric() distance.Metric { return a.metric }

// Dim returns the embedding dimensionality.
func (a *Artifact) Dim() int { return a.dim }

// Len returns the number of rows.
func (a *Artifact) Len() int { return len(a.vectors) }

// Vector returns the embedding at the given row.
// The returned slice must be treated as read-only.
func (a *Artifact) Vector(row int32) []float32 { return a.vectors[row] }

// ID returns the track id at the given row.
func (a *Artifact) ID(row int32) string { return a.ids[row] }

// Row resolves a track id to its row index.
func (a *Artifact) Row(id string) (int32, bool) {
	row, ok := a.rowByID[id]
	return row, ok
}

// HasLabels reports whether the artifact carries cluster labels.
func (a *Artifact) HasLabels() bool { return a.labels != nil }

// Label returns the cluster label at the given row.
// Only valid when HasLabels is true.
func (a *Artifact) Label(row int32) int32 { return a.labels[row] }

// IVF returns the precomputed coarse neighbor index, or nil.
func (a *Artifact) IVF() *IVF { return a.ivf }
