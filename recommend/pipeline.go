package recommend

import "sort"

// The result-shaping pipeline shared by every strategy: merge/dedup,
// seed exclusion, truncation. Candidates may come from the embedding
// space or from an external collaborator; shaping is uniform.

// mergeDedup collapses duplicate tracks keeping the maximum score
// observed (optimistic merge: a track close to any seed ranks by its
// best match, not diluted by weaker ones). Input order is irrelevant;
// ordering is imposed by truncate.
func mergeDedup(lists ...[]Item) []Item {
	best := make(map[string]Item)
	for _, list := range lists {
		for _, item := range list {
			if prev, ok := best[item.TrackID]; !ok || item.Score > prev.Score {
				best[item.TrackID] = item
			}
		}
	}

	out := make([]Item, 0, len(best))
	for _, item := range best {
		out = append(out, item)
	}
	return out
}

// excludeIDs removes the given track ids from items. Self-matches at
// distance zero are expected from the index and must never surface as
// recommendations.
func excludeIDs(items []Item, ids map[string]struct{}) []Item {
	out := items[:0]
	for _, item := range items {
		if _, drop := ids[item.TrackID]; !drop {
			out = append(out, item)
		}
	}
	return out
}

// truncate sorts by descending score, ties by ascending track id for
// determinism, and cuts to count.
func truncate(items []Item, count int) []Item {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].TrackID < items[j].TrackID
	})
	if len(items) > count {
		items = items[:count]
	}
	return items
}

// shape runs the full tail of the pipeline.
func shape(lists [][]Item, exclude map[string]struct{}, count int) []Item {
	merged := mergeDedup(lists...)
	merged = excludeIDs(merged, exclude)
	return truncate(merged, count)
}
