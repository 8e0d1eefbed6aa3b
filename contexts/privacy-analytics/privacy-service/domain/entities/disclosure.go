package entities

import "time"

type NoisedTally struct {
	OptionID string  `json:"option_id"`
	Count    float64 `json:"count"`
}

// BreakdownBucket is one attribute slice after k-anonymity filtering and
// noise. Merged below-threshold slices surface as a single "other" bucket.
type BreakdownBucket struct {
	Value string  `json:"value"`
	Count float64 `json:"count"`
}

// Disclosure is the privacy-filtered view released to a caller. It is never
// cached; every instance corresponds to exactly one ledger charge (or the
// idempotent replay of one).
type Disclosure struct {
	PollID           string
	Context          DisclosureContext
	Epsilon          float64
	Tallies          []NoisedTally
	Attribute        string
	Buckets          []BreakdownBucket
	SuppressedBucket bool
	KThreshold       int
	Replayed         bool
	Remaining        float64
	DisclosedAt      time.Time
}
