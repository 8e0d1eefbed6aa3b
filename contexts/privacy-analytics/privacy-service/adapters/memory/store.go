package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"choices/contexts/privacy-analytics/privacy-service/domain/entities"
	domainerrors "choices/contexts/privacy-analytics/privacy-service/domain/errors"
	"choices/contexts/privacy-analytics/privacy-service/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	ledgers map[string]entities.BudgetLedger
	entries map[string]entities.LedgerEntry

	polls      map[string]ports.PollProjection
	results    map[string]ports.ResultProjection
	attributes map[string]map[string]map[string]int
}

func NewStore() *Store {
	return &Store{
		ledgers:    make(map[string]entities.BudgetLedger),
		entries:    make(map[string]entities.LedgerEntry),
		polls:      make(map[string]ports.PollProjection),
		results:    make(map[string]ports.ResultProjection),
		attributes: make(map[string]map[string]map[string]int),
	}
}

func (s *Store) SetPoll(poll ports.PollProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[strings.TrimSpace(poll.PollID)] = poll
}

func (s *Store) SetResult(result ports.ResultProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[strings.TrimSpace(result.PollID)] = result
}

func (s *Store) SetAttributeCounts(pollID string, attribute string, counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID = strings.TrimSpace(pollID)
	if s.attributes[pollID] == nil {
		s.attributes[pollID] = make(map[string]map[string]int)
	}
	copied := make(map[string]int, len(counts))
	for value, count := range counts {
		copied[value] = count
	}
	s.attributes[pollID][strings.TrimSpace(strings.ToLower(attribute))] = copied
}

// Spend holds the store lock across the budget check and the increment, which
// is the in-memory equivalent of the transactional conditional update the
// postgres adapter runs.
func (s *Store) Spend(_ context.Context, req ports.SpendRequest) (ports.SpendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID := strings.TrimSpace(req.PollID)
	queryKey := strings.TrimSpace(req.Entry.QueryKey)

	if existing, ok := s.entries[queryKey]; ok {
		if existing.PollID != pollID || existing.Epsilon != req.Entry.Epsilon {
			return ports.SpendResult{}, domainerrors.ErrConflict
		}
		return ports.SpendResult{Ledger: s.ledgers[pollID], Replayed: true}, nil
	}

	ledger, ok := s.ledgers[pollID]
	if !ok {
		ledger = entities.BudgetLedger{
			PollID:    pollID,
			Allocated: req.Allocated,
		}
	}
	if ledger.Consumed+req.Entry.Epsilon > ledger.Allocated {
		return ports.SpendResult{}, domainerrors.ErrBudgetExceeded
	}

	ledger.Consumed += req.Entry.Epsilon
	ledger.UpdatedAt = req.Entry.RequestedAt.UTC()
	s.ledgers[pollID] = ledger
	s.entries[queryKey] = req.Entry
	return ports.SpendResult{Ledger: ledger}, nil
}

func (s *Store) GetLedger(_ context.Context, pollID string) (entities.BudgetLedger, []entities.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID = strings.TrimSpace(pollID)
	entries := make([]entities.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.PollID == pollID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RequestedAt.Before(entries[j].RequestedAt)
	})
	return s.ledgers[pollID], entries, nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (ports.PollProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return ports.PollProjection{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) GetResult(_ context.Context, pollID string) (ports.ResultProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[strings.TrimSpace(pollID)]
	if !ok {
		return ports.ResultProjection{}, domainerrors.ErrResultUnavailable
	}
	return result, nil
}

func (s *Store) CountByAttribute(_ context.Context, pollID string, attribute string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.attributes[strings.TrimSpace(pollID)][strings.TrimSpace(strings.ToLower(attribute))]
	copied := make(map[string]int, len(counts))
	for value, count := range counts {
		copied[value] = count
	}
	return copied, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.LedgerStore = (*Store)(nil)
var _ ports.PollReader = (*Store)(nil)
var _ ports.ResultReader = (*Store)(nil)
var _ ports.AttributeReader = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
