// Package distance provides vector distance calculations and the
// distance-to-similarity normalization used across all models.
//
// Float math is delegated to github.com/viterin/vek (SIMD on amd64/arm64
// with a pure-Go fallback).
package distance

import (
	"fmt"
	"math"
	"slices"

	"github.com/viterin/vek/vek32"
)

// Metric identifies the distance metric an artifact was trained under.
type Metric int

const (
	// MetricEuclidean is the L2 distance. Audio-feature cluster models
	// (HDBSCAN variants over scaled/PCA feature transforms) use it.
	MetricEuclidean Metric = iota
	// MetricCosine is the cosine distance (1 - cosine similarity).
	// Lyrics TF-IDF/SVD models use it.
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMetric resolves a metric by its stable name as recorded in bundle
// payloads.
func ParseMetric(name string) (Metric, error) {
	switch name {
	case "euclidean":
		return MetricEuclidean, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", name)
	}
}

// Func is a function type for distance calculation.
// Both vectors must have the same length (caller's responsibility).
type Func func(a, b []float32) float32

// Euclidean calculates the L2 distance between two vectors.
func Euclidean(a, b []float32) float32 {
	return vek32.Distance(a, b)
}

// Cosine calculates the cosine distance (1 - cosine similarity) between
// two vectors. Zero-norm inputs yield the maximum distance 1.
func Cosine(a, b []float32) float32 {
	an := vek32.Dot(a, a)
	bn := vek32.Dot(b, b)
	if an == 0 || bn == 0 {
		return 1
	}
	sim := float64(vek32.Dot(a, b)) / (math.Sqrt(float64(an)) * math.Sqrt(float64(bn)))
	return float32(1 - sim)
}

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	case MetricCosine:
		return Cosine, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Similarity converts a raw distance into the normalized [0,1] similarity
// score (higher is better) shared by all models:
//
//	euclidean: 1 / (1 + d)
//	cosine:    1 - d, clamped to [0,1]
//
// The normalization makes scores from different models nominally
// comparable; comparability across differently-trained models remains
// approximate.
func Similarity(m Metric, d float32) float32 {
	switch m {
	case MetricCosine:
		s := 1 - d
		if s < 0 {
			return 0
		}
		if s > 1 {
			return 1
		}
		return s
	default:
		if d < 0 {
			d = 0
		}
		return 1 / (1 + d)
	}
}

// Centroid returns the arithmetic mean of the given vectors.
// All vectors must share one length; the slice must be non-empty.
func Centroid(vecs [][]float32) []float32 {
	out := slices.Clone(vecs[0])
	for _, v := range vecs[1:] {
		vek32.Add_Inplace(out, v)
	}
	vek32.MulNumber_Inplace(out, 1/float32(len(vecs)))
	return out
}
