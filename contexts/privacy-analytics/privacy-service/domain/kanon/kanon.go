// Package kanon enforces minimum group sizes on breakdown buckets before any
// count leaves the system.
package kanon

import "sort"

const OtherBucket = "other"

type Bucket struct {
	Value string
	Count int
}

// Apply merges every bucket smaller than threshold into a single "other"
// bucket. If the merged remainder itself stays below threshold it is dropped
// entirely, so no released bucket ever has between 1 and threshold-1 members.
// The second return reports whether anything was suppressed or merged.
func Apply(counts map[string]int, threshold int) ([]Bucket, bool) {
	if threshold < 1 {
		threshold = 1
	}
	kept := make([]Bucket, 0, len(counts))
	merged := 0
	touched := false
	for value, count := range counts {
		if count <= 0 {
			continue
		}
		if count < threshold || value == OtherBucket {
			merged += count
			touched = touched || value != OtherBucket
			continue
		}
		kept = append(kept, Bucket{Value: value, Count: count})
	}
	if merged >= threshold {
		kept = append(kept, Bucket{Value: OtherBucket, Count: merged})
	} else if merged > 0 {
		touched = true
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Value < kept[j].Value
	})
	return kept, touched
}
