package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type MethodConfigPayload struct {
	AllowRevote  bool    `json:"allow_revote"`
	CreditBudget int     `json:"credit_budget,omitempty"`
	MinScore     float64 `json:"min_score,omitempty"`
	MaxScore     float64 `json:"max_score,omitempty"`
}

type CreatePollRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Options       []string            `json:"options"`
	Method        string              `json:"method"`
	Config        MethodConfigPayload `json:"config"`
	Privacy       string              `json:"privacy,omitempty"`
	EpsilonBudget float64             `json:"epsilon_budget,omitempty"`
	KThreshold    int                 `json:"k_threshold,omitempty"`
}

type OptionPayload struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

type PollResponse struct {
	PollID        string              `json:"poll_id"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Options       []OptionPayload     `json:"options"`
	Method        string              `json:"method"`
	Config        MethodConfigPayload `json:"config"`
	Privacy       string              `json:"privacy"`
	Status        string              `json:"status"`
	EpsilonBudget float64             `json:"epsilon_budget"`
	KThreshold    int                 `json:"k_threshold"`
	CreatorID     string              `json:"creator_id"`
	CreatedAt     string              `json:"created_at"`
	ActivatedAt   string              `json:"activated_at,omitempty"`
	ClosedAt      string              `json:"closed_at,omitempty"`
	Replayed      bool                `json:"replayed,omitempty"`
}

type PollListResponse struct {
	Items []PollResponse `json:"items"`
}
