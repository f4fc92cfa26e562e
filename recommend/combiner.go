package recommend

// Combiner merges cluster-restricted and global result lists with fixed
// weights.
//
// A track present in both lists scores w*cluster + (1-w)*global. A track
// present in only one list is scaled by that list's weight alone, not
// renormalized: agreement between the two feature perspectives is
// rewarded, single-source matches are penalized.
type Combiner struct {
	clusterWeight float64
}

// DefaultClusterWeight preserves the observed production behavior.
const DefaultClusterWeight = 0.7

// NewCombiner creates a combiner. The weight is policy, not derived;
// values outside (0,1) fall back to the default.
func NewCombiner(clusterWeight float64) *Combiner {
	if clusterWeight <= 0 || clusterWeight >= 1 {
		clusterWeight = DefaultClusterWeight
	}
	return &Combiner{clusterWeight: clusterWeight}
}

// ClusterWeight returns the configured weight.
func (c *Combiner) ClusterWeight() float64 { return c.clusterWeight }

// Combine merges the two lists. The output is unsorted and untruncated;
// callers run it through the shaping tail exactly like any other
// candidate list.
func (c *Combiner) Combine(cluster, global []Item) []Item {
	w := c.clusterWeight

	globalScores := make(map[string]float64, len(global))
	for _, item := range global {
		globalScores[item.TrackID] = item.Score
	}

	out := make([]Item, 0, len(cluster)+len(global))
	inCluster := make(map[string]struct{}, len(cluster))
	for _, item := range cluster {
		inCluster[item.TrackID] = struct{}{}

		score := w * item.Score
		if g, ok := globalScores[item.TrackID]; ok {
			score = w*item.Score + (1-w)*g
		}
		out = append(out, Item{TrackID: item.TrackID, Score: score, SourceModel: item.SourceModel})
	}

	for _, item := range global {
		if _, ok := inCluster[item.TrackID]; ok {
			continue
		}
		out = append(out, Item{TrackID: item.TrackID, Score: (1 - w) * item.Score, SourceModel: item.SourceModel})
	}

	return out
}
