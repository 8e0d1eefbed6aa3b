package entities

import "time"

type VotingMethod string

const (
	MethodSingle    VotingMethod = "single"
	MethodApproval  VotingMethod = "approval"
	MethodRanked    VotingMethod = "ranked"
	MethodQuadratic VotingMethod = "quadratic"
	MethodRange     VotingMethod = "range"
)

func (m VotingMethod) Valid() bool {
	switch m {
	case MethodSingle, MethodApproval, MethodRanked, MethodQuadratic, MethodRange:
		return true
	default:
		return false
	}
}

type PrivacyLevel string

const (
	PrivacyPublic  PrivacyLevel = "public"
	PrivacyPrivate PrivacyLevel = "private"
	PrivacyHigh    PrivacyLevel = "high_privacy"
)

func (l PrivacyLevel) Valid() bool {
	switch l {
	case PrivacyPublic, PrivacyPrivate, PrivacyHigh:
		return true
	default:
		return false
	}
}

type PollStatus string

const (
	StatusDraft  PollStatus = "draft"
	StatusActive PollStatus = "active"
	StatusClosed PollStatus = "closed"
)

// Option and MethodConfig carry json tags because they are stored as jsonb
// columns that sibling contexts read back as projections.
type Option struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

// MethodConfig carries the per-method knobs a poll is created with. Fields
// that do not apply to the poll's method are zero and ignored.
type MethodConfig struct {
	AllowRevote  bool    `json:"allow_revote"`
	CreditBudget int     `json:"credit_budget,omitempty"` // quadratic: total credits each voter may spend
	MinScore     float64 `json:"min_score,omitempty"`     // range: inclusive lower bound per option score
	MaxScore     float64 `json:"max_score,omitempty"`     // range: inclusive upper bound per option score
}

type Poll struct {
	PollID        string
	Title         string
	Description   string
	Options       []Option
	Method        VotingMethod
	Config        MethodConfig
	Privacy       PrivacyLevel
	Status        PollStatus
	EpsilonBudget float64
	KThreshold    int
	CreatorID     string
	CreatedAt     time.Time
	ActivatedAt   *time.Time
	ClosedAt      *time.Time
	UpdatedAt     time.Time
}

func (p Poll) HasOption(optionID string) bool {
	for _, option := range p.Options {
		if option.OptionID == optionID {
			return true
		}
	}
	return false
}

func (p Poll) OptionIDs() []string {
	ids := make([]string, 0, len(p.Options))
	for _, option := range p.Options {
		ids = append(ids, option.OptionID)
	}
	return ids
}
