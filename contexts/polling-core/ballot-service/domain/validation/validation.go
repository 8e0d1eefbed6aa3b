// Package validation holds the pure ballot validator. It has no storage or
// transport dependencies so the same rules can run in command handlers and in
// tests without adapters.
package validation

import (
	"strings"

	"choices/contexts/polling-core/ballot-service/domain/entities"
	domainerrors "choices/contexts/polling-core/ballot-service/domain/errors"
)

const (
	MethodSingle    = "single"
	MethodApproval  = "approval"
	MethodRanked    = "ranked"
	MethodQuadratic = "quadratic"
	MethodRange     = "range"
)

// PollSchema is the validator's view of a poll: the option universe plus the
// method-specific constraints ballots are checked against.
type PollSchema struct {
	PollID       string
	Method       string
	OptionIDs    []string
	AllowRevote  bool
	CreditBudget int
	MinScore     float64
	MaxScore     float64
}

func (s PollSchema) hasOption(optionID string) bool {
	for _, id := range s.OptionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

// ValidateSelection checks a raw selection against the poll schema and returns
// a normalized copy carrying only the field group the method uses. Business
// rule violations come back as typed errors, never panics.
func ValidateSelection(schema PollSchema, raw entities.Selection) (entities.Selection, error) {
	switch schema.Method {
	case MethodSingle:
		return validateSingle(schema, raw)
	case MethodApproval:
		return validateApproval(schema, raw)
	case MethodRanked:
		return validateRanked(schema, raw)
	case MethodQuadratic:
		return validateQuadratic(schema, raw)
	case MethodRange:
		return validateRange(schema, raw)
	default:
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
}

func validateSingle(schema PollSchema, raw entities.Selection) (entities.Selection, error) {
	option := strings.TrimSpace(raw.Option)
	if option == "" {
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
	if !schema.hasOption(option) {
		return entities.Selection{}, domainerrors.ErrOptionNotInPoll
	}
	return entities.Selection{Option: option}, nil
}

func validateApproval(schema PollSchema, raw entities.Selection) (entities.Selection, error) {
	if len(raw.Options) == 0 {
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
	seen := make(map[string]struct{}, len(raw.Options))
	options := make([]string, 0, len(raw.Options))
	for _, candidate := range raw.Options {
		option := strings.TrimSpace(candidate)
		if option == "" {
			return entities.Selection{}, domainerrors.ErrMalformedBallot
		}
		if !schema.hasOption(option) {
			return entities.Selection{}, domainerrors.ErrOptionNotInPoll
		}
		if _, dup := seen[option]; dup {
			continue
		}
		seen[option] = struct{}{}
		options = append(options, option)
	}
	return entities.Selection{Options: options}, nil
}

func validateRanked(schema PollSchema, raw entities.Selection) (entities.Selection, error) {
	if len(raw.Ranking) == 0 {
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
	seen := make(map[string]struct{}, len(raw.Ranking))
	ranking := make([]string, 0, len(raw.Ranking))
	for _, candidate := range raw.Ranking {
		option := strings.TrimSpace(candidate)
		if option == "" {
			return entities.Selection{}, domainerrors.ErrMalformedBallot
		}
		if !schema.hasOption(option) {
			return entities.Selection{}, domainerrors.ErrOptionNotInPoll
		}
		if _, dup := seen[option]; dup {
			return entities.Selection{}, domainerrors.ErrDuplicateRanking
		}
		seen[option] = struct{}{}
		ranking = append(ranking, option)
	}
	return entities.Selection{Ranking: ranking}, nil
}

func validateQuadratic(schema PollSchema, raw entities.Selection) (entities.Selection, error) {
	if len(raw.Credits) == 0 {
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
	credits := make(map[string]int, len(raw.Credits))
	spent := 0
	for candidate, amount := range raw.Credits {
		option := strings.TrimSpace(candidate)
		if option == "" || amount < 0 {
			return entities.Selection{}, domainerrors.ErrMalformedBallot
		}
		if !schema.hasOption(option) {
			return entities.Selection{}, domainerrors.ErrOptionNotInPoll
		}
		if amount == 0 {
			continue
		}
		credits[option] = amount
		spent += amount
	}
	if len(credits) == 0 {
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
	if schema.CreditBudget > 0 && spent > schema.CreditBudget {
		return entities.Selection{}, domainerrors.ErrCreditBudgetExceeded
	}
	return entities.Selection{Credits: credits}, nil
}

func validateRange(schema PollSchema, raw entities.Selection) (entities.Selection, error) {
	if len(raw.Scores) == 0 {
		return entities.Selection{}, domainerrors.ErrMalformedBallot
	}
	scores := make(map[string]float64, len(raw.Scores))
	for candidate, score := range raw.Scores {
		option := strings.TrimSpace(candidate)
		if option == "" {
			return entities.Selection{}, domainerrors.ErrMalformedBallot
		}
		if !schema.hasOption(option) {
			return entities.Selection{}, domainerrors.ErrOptionNotInPoll
		}
		if score < schema.MinScore || score > schema.MaxScore {
			return entities.Selection{}, domainerrors.ErrScoreOutOfRange
		}
		scores[option] = score
	}
	return entities.Selection{Scores: scores}, nil
}
