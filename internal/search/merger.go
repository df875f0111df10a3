package search

import "sort"

// Merger deduplicates results across source lists and boosts
// multi-source agreement.
type Merger struct{}

// Merge combines per-source result lists keyed by entry ID. The
// first-seen score is kept as baseline; each later occurrence of the
// same entry boosts it by otherScore x sourceWeight x 0.3, capped at
// 100. Highlights from later occurrences are appended. The merged list
// is sorted descending by score, then offset/limit are applied.
func (m *Merger) Merge(lists [][]Result, opts Options) []Result {
	merged := make([]Result, 0)
	byID := make(map[string]int)

	for _, list := range lists {
		for _, r := range list {
			idx, seen := byID[r.Entry.ID]
			if !seen {
				byID[r.Entry.ID] = len(merged)
				merged = append(merged, r)
				continue
			}

			base := &merged[idx]
			boost := r.Score * sourceWeight(r.Metadata.Source) * 0.3
			base.Score = clampScore(base.Score + boost)
			base.Highlights = append(base.Highlights, r.Highlights...)
			if base.Explanation == "" {
				base.Explanation = r.Explanation
			}
			if base.Metadata.Confidence == 0 {
				base.Metadata.Confidence = r.Metadata.Confidence
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Entry.ID < merged[j].Entry.ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(merged) {
			return []Result{}
		}
		merged = merged[opts.Offset:]
	}

	if limit := opts.effectiveLimit(); len(merged) > limit {
		merged = merged[:limit]
	}

	return merged
}
