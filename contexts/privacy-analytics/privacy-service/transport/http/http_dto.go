// Package http defines transport DTOs for the privacy-service HTTP API.
package http

// DiscloseRequest asks for a privacy-filtered view of a poll result.
type DiscloseRequest struct {
	Context   string  `json:"context"`
	Epsilon   float64 `json:"epsilon"`
	Attribute string  `json:"attribute,omitempty"`
}

type NoisedTallyPayload struct {
	OptionID string  `json:"option_id"`
	Count    float64 `json:"count"`
}

type BreakdownBucketPayload struct {
	Value string  `json:"value"`
	Count float64 `json:"count"`
}

type DisclosureResponse struct {
	PollID           string                   `json:"poll_id"`
	Context          string                   `json:"context"`
	Epsilon          float64                  `json:"epsilon"`
	Tallies          []NoisedTallyPayload     `json:"tallies"`
	Attribute        string                   `json:"attribute,omitempty"`
	Buckets          []BreakdownBucketPayload `json:"buckets,omitempty"`
	SuppressedBucket bool                     `json:"suppressed_bucket"`
	KThreshold       int                      `json:"k_threshold"`
	Replayed         bool                     `json:"replayed"`
	RemainingEpsilon float64                  `json:"remaining_epsilon"`
	DisclosedAt      string                   `json:"disclosed_at"`
}

type LedgerEntryPayload struct {
	EntryID     string  `json:"entry_id"`
	QueryKey    string  `json:"query_key"`
	Context     string  `json:"context"`
	Epsilon     float64 `json:"epsilon"`
	RequestedAt string  `json:"requested_at"`
}

type BudgetResponse struct {
	PollID           string               `json:"poll_id"`
	Allocated        float64              `json:"allocated"`
	Consumed         float64              `json:"consumed"`
	RemainingEpsilon float64              `json:"remaining_epsilon"`
	Entries          []LedgerEntryPayload `json:"entries"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
