package validation

import (
	"errors"
	"testing"

	"choices/contexts/polling-core/ballot-service/domain/entities"
	domainerrors "choices/contexts/polling-core/ballot-service/domain/errors"
)

func schema(method string) PollSchema {
	return PollSchema{
		PollID:       "poll-1",
		Method:       method,
		OptionIDs:    []string{"opt-01", "opt-02", "opt-03"},
		CreditBudget: 25,
		MinScore:     0,
		MaxScore:     10,
	}
}

func TestValidateSingle(t *testing.T) {
	normalized, err := ValidateSelection(schema(MethodSingle), entities.Selection{Option: " opt-01 "})
	if err != nil {
		t.Fatalf("validate single failed: %v", err)
	}
	if normalized.Option != "opt-01" {
		t.Fatalf("expected trimmed option, got %q", normalized.Option)
	}

	if _, err := ValidateSelection(schema(MethodSingle), entities.Selection{Option: "opt-99"}); !errors.Is(err, domainerrors.ErrOptionNotInPoll) {
		t.Fatalf("expected option-not-in-poll, got %v", err)
	}
	if _, err := ValidateSelection(schema(MethodSingle), entities.Selection{}); !errors.Is(err, domainerrors.ErrMalformedBallot) {
		t.Fatalf("expected malformed ballot, got %v", err)
	}
}

func TestValidateApprovalDedupes(t *testing.T) {
	normalized, err := ValidateSelection(schema(MethodApproval), entities.Selection{
		Options: []string{"opt-01", "opt-02", "opt-01"},
	})
	if err != nil {
		t.Fatalf("validate approval failed: %v", err)
	}
	if len(normalized.Options) != 2 {
		t.Fatalf("expected duplicate approval collapsed, got %v", normalized.Options)
	}
}

func TestValidateRankedRejectsDuplicate(t *testing.T) {
	if _, err := ValidateSelection(schema(MethodRanked), entities.Selection{
		Ranking: []string{"opt-01", "opt-02", "opt-01"},
	}); !errors.Is(err, domainerrors.ErrDuplicateRanking) {
		t.Fatalf("expected duplicate ranking error, got %v", err)
	}

	normalized, err := ValidateSelection(schema(MethodRanked), entities.Selection{
		Ranking: []string{"opt-02", "opt-03"},
	})
	if err != nil {
		t.Fatalf("partial ranking should be allowed: %v", err)
	}
	if len(normalized.Ranking) != 2 {
		t.Fatalf("expected 2 ranked options, got %v", normalized.Ranking)
	}
}

func TestValidateQuadraticBudget(t *testing.T) {
	normalized, err := ValidateSelection(schema(MethodQuadratic), entities.Selection{
		Credits: map[string]int{"opt-01": 16, "opt-02": 9, "opt-03": 0},
	})
	if err != nil {
		t.Fatalf("validate quadratic failed: %v", err)
	}
	if _, ok := normalized.Credits["opt-03"]; ok {
		t.Fatalf("zero-credit entry should be dropped")
	}

	if _, err := ValidateSelection(schema(MethodQuadratic), entities.Selection{
		Credits: map[string]int{"opt-01": 16, "opt-02": 10},
	}); !errors.Is(err, domainerrors.ErrCreditBudgetExceeded) {
		t.Fatalf("expected credit budget exceeded, got %v", err)
	}
	if _, err := ValidateSelection(schema(MethodQuadratic), entities.Selection{
		Credits: map[string]int{"opt-01": -1},
	}); !errors.Is(err, domainerrors.ErrMalformedBallot) {
		t.Fatalf("negative credits should be malformed, got %v", err)
	}
}

func TestValidateRangeBounds(t *testing.T) {
	if _, err := ValidateSelection(schema(MethodRange), entities.Selection{
		Scores: map[string]float64{"opt-01": 11},
	}); !errors.Is(err, domainerrors.ErrScoreOutOfRange) {
		t.Fatalf("expected score out of range, got %v", err)
	}

	normalized, err := ValidateSelection(schema(MethodRange), entities.Selection{
		Scores: map[string]float64{"opt-01": 0, "opt-02": 10},
	})
	if err != nil {
		t.Fatalf("boundary scores should be valid: %v", err)
	}
	if len(normalized.Scores) != 2 {
		t.Fatalf("expected both scores kept, got %v", normalized.Scores)
	}
}

func TestValidateUnknownMethod(t *testing.T) {
	if _, err := ValidateSelection(schema("borda"), entities.Selection{Option: "opt-01"}); !errors.Is(err, domainerrors.ErrMalformedBallot) {
		t.Fatalf("expected malformed ballot for unknown method, got %v", err)
	}
}
