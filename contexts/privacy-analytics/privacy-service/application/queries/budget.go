package queries

import (
	"context"
	"strings"

	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
	"choices/contexts/privacy-analytics/privacy-service/ports"
)

type BudgetUseCase struct {
	Ledger ports.LedgerStore
	Polls  ports.PollReader
}

type BudgetStatus struct {
	Ledger  entities.BudgetLedger
	Entries []entities.LedgerEntry
}

// GetBudget reports the ledger for a poll. A poll that has never been
// disclosed against reports its full allocation as remaining.
func (uc BudgetUseCase) GetBudget(ctx context.Context, pollID string) (BudgetStatus, error) {
	pollID = strings.TrimSpace(pollID)
	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return BudgetStatus{}, err
	}
	ledger, entries, err := uc.Ledger.GetLedger(ctx, pollID)
	if err != nil {
		return BudgetStatus{}, err
	}
	if ledger.PollID == "" {
		ledger = entities.BudgetLedger{
			PollID:    pollID,
			Allocated: poll.EpsilonBudget,
		}
	}
	return BudgetStatus{Ledger: ledger, Entries: entries}, nil
}
