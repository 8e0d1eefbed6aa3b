package entities

import "time"

// Selection mirrors the ballot payload shape stored by the ballot write path;
// the json tags must stay aligned with the ballots table.
type Selection struct {
	Option  string             `json:"option,omitempty"`
	Options []string           `json:"options,omitempty"`
	Ranking []string           `json:"ranking,omitempty"`
	Credits map[string]int     `json:"credits,omitempty"`
	Scores  map[string]float64 `json:"scores,omitempty"`
}

// Ballot is the tabulation view of a cast ballot: just enough to count it and
// to pick the latest per voter.
type Ballot struct {
	BallotID  string
	PollID    string
	VoterID   string
	Method    string
	Selection Selection
	Sequence  int64
	CastAt    time.Time
}

type OptionTally struct {
	OptionID string  `json:"option_id"`
	Count    float64 `json:"count"`
}

// RoundCount is one option's first-preference count within an IRV round.
type RoundCount struct {
	OptionID string `json:"option_id"`
	Count    int    `json:"count"`
}

type EliminationRound struct {
	Round      int          `json:"round"`
	Counts     []RoundCount `json:"counts"`
	Eliminated []string     `json:"eliminated,omitempty"`
	Exhausted  int          `json:"exhausted"`
}

// TabulationResult is derived entirely from the ballot set. ResultHash covers
// every field except ComputedAt, so recomputing over unchanged ballots yields
// the same hash.
type TabulationResult struct {
	PollID           string             `json:"poll_id"`
	Method           string             `json:"method"`
	Tallies          []OptionTally      `json:"tallies"`
	Rounds           []EliminationRound `json:"rounds,omitempty"`
	Winners          []string           `json:"winners,omitempty"`
	Tie              bool               `json:"tie"`
	TotalBallots     int                `json:"total_ballots"`
	CountedBallots   int                `json:"counted_ballots"`
	ExhaustedBallots int                `json:"exhausted_ballots"`
	ResultHash       string             `json:"result_hash"`
	ComputedAt       time.Time          `json:"computed_at"`
}
