package entities

import "time"

// Selection carries the method-specific payload of a cast ballot. Exactly one
// field group is populated depending on the poll's voting method.
type Selection struct {
	Option  string             `json:"option,omitempty"`
	Options []string           `json:"options,omitempty"`
	Ranking []string           `json:"ranking,omitempty"`
	Credits map[string]int     `json:"credits,omitempty"`
	Scores  map[string]float64 `json:"scores,omitempty"`
}

// Ballot is append-only: a revote produces a new row with a higher Sequence
// instead of mutating or deleting the prior one.
type Ballot struct {
	BallotID          string
	PollID            string
	VoterID           string
	Method            string
	Selection         Selection
	Attributes        map[string]string
	Sequence          int64
	MerkleLeaf        string
	VerificationToken string
	CastAt            time.Time
}
