package recommend

import (
	"context"
	"errors"
	"fmt"
)

// Strategy selects how candidates are produced for a request.
type Strategy int

const (
	// StrategyGlobal runs one centroid query over the whole artifact.
	StrategyGlobal Strategy = iota
	// StrategyCluster restricts the centroid query to the modal cluster
	// of the seeds, falling back to global when the seeds are noise.
	StrategyCluster
	// StrategyHybrid blends cluster-restricted and global results with
	// fixed weights.
	StrategyHybrid
	// StrategyArtist shapes candidates supplied by the external catalog
	// collaborator (artist adjacency), not by the embedding space.
	StrategyArtist
	// StrategyGenre shapes collaborator-supplied genre candidates.
	StrategyGenre
)

func (s Strategy) String() string {
	switch s {
	case StrategyGlobal:
		return "global"
	case StrategyCluster:
		return "cluster"
	case StrategyHybrid:
		return "hybrid"
	case StrategyArtist:
		return "artist_based"
	case StrategyGenre:
		return "genre_based"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ErrUnknownStrategy is returned for strategy names outside the enum.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ParseStrategy resolves a strategy by its wire name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "global":
		return StrategyGlobal, nil
	case "cluster":
		return StrategyCluster, nil
	case "hybrid":
		return StrategyHybrid, nil
	case "artist_based":
		return StrategyArtist, nil
	case "genre_based":
		return StrategyGenre, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Request is one recommendation request against one model.
type Request struct {
	// SeedTrackIDs is the ordered seed list. Duplicates are tolerated
	// and deduplicated before use.
	SeedTrackIDs []string
	// Strategy selects the candidate source.
	Strategy Strategy
	// Count is the maximum number of items returned. Must be positive.
	Count int
	// ExcludeIDs are additional track ids never returned. The deduped
	// seeds are always excluded regardless.
	ExcludeIDs []string
}

// Item is one ranked recommendation.
type Item struct {
	TrackID     string
	Score       float64
	SourceModel string
}

// Candidate is a pre-scored track supplied by an external collaborator
// (artist- and genre-based strategies). Scores must already be
// normalized to [0,1].
type Candidate struct {
	TrackID string
	Score   float64
}

// CandidateSource supplies collaborator candidates for the metadata
// driven strategies. The engine applies its uniform shaping pipeline
// (merge/dedup, seed exclusion, truncation) on top.
type CandidateSource interface {
	// Candidates returns pre-scored candidates for the deduped seeds.
	Candidates(ctx context.Context, strategy Strategy, seeds []string) ([]Candidate, error)
}

// Validation sentinels. The engine facade wraps these into its public
// invalid-request taxonomy.
var (
	// ErrEmptySeeds is returned when a request carries no seed tracks.
	ErrEmptySeeds = errors.New("seed track list is empty")
	// ErrInvalidCount is returned when a request count is not positive.
	ErrInvalidCount = errors.New("count must be positive")
	// ErrNoCandidateSource is returned when a metadata-driven strategy
	// runs without a configured candidate source.
	ErrNoCandidateSource = errors.New("no candidate source configured")
)

// Validate checks the request shape. Strategy-specific failures (seeds
// missing from the model) surface later, during the build step.
func (r *Request) Validate() error {
	if len(r.SeedTrackIDs) == 0 {
		return ErrEmptySeeds
	}
	if r.Count <= 0 {
		return ErrInvalidCount
	}
	return nil
}
