package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OptionTallyPayload struct {
	OptionID string  `json:"option_id"`
	Count    float64 `json:"count"`
}

type RoundCountPayload struct {
	OptionID string `json:"option_id"`
	Count    int    `json:"count"`
}

type EliminationRoundPayload struct {
	Round      int                 `json:"round"`
	Counts     []RoundCountPayload `json:"counts"`
	Eliminated []string            `json:"eliminated,omitempty"`
	Exhausted  int                 `json:"exhausted"`
}

type TallyResponse struct {
	PollID           string                    `json:"poll_id"`
	Method           string                    `json:"method"`
	Tallies          []OptionTallyPayload      `json:"tallies"`
	Rounds           []EliminationRoundPayload `json:"rounds,omitempty"`
	Winners          []string                  `json:"winners,omitempty"`
	Tie              bool                      `json:"tie"`
	TotalBallots     int                       `json:"total_ballots"`
	CountedBallots   int                       `json:"counted_ballots"`
	ExhaustedBallots int                       `json:"exhausted_ballots"`
	ResultHash       string                    `json:"result_hash"`
	ComputedAt       string                    `json:"computed_at"`
}
