package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CastBallotRequest struct {
	PollID     string             `json:"poll_id"`
	Option     string             `json:"option,omitempty"`
	Options    []string           `json:"options,omitempty"`
	Ranking    []string           `json:"ranking,omitempty"`
	Credits    map[string]int     `json:"credits,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	Attributes map[string]string  `json:"attributes,omitempty"`
}

type BallotResponse struct {
	BallotID          string `json:"ballot_id"`
	PollID            string `json:"poll_id"`
	Sequence          int64  `json:"sequence"`
	MerkleLeaf        string `json:"merkle_leaf"`
	VerificationToken string `json:"verification_token"`
	CastAt            string `json:"cast_at"`
	Revote            bool   `json:"revote"`
	Replayed          bool   `json:"replayed,omitempty"`
}

type CommitmentResponse struct {
	PollID     string `json:"poll_id"`
	Root       string `json:"root"`
	LeafCount  int    `json:"leaf_count"`
	ComputedAt string `json:"computed_at"`
}

type ProofStepPayload struct {
	Hash string `json:"hash"`
	Left bool   `json:"left"`
}

type ProofResponse struct {
	PollID    string             `json:"poll_id"`
	BallotID  string             `json:"ballot_id"`
	Leaf      string             `json:"leaf"`
	Root      string             `json:"root"`
	LeafCount int                `json:"leaf_count"`
	Steps     []ProofStepPayload `json:"steps"`
}
