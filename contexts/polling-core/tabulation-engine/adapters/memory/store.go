package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	domainerrors "choices/contexts/polling-core/tabulation-engine/domain/errors"
	"choices/contexts/polling-core/tabulation-engine/ports"
)

type cachedResult struct {
	result    entities.TabulationResult
	expiresAt time.Time
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type Store struct {
	mu sync.RWMutex

	ballots    map[string]entities.Ballot
	polls      map[string]ports.PollProjection
	cache      map[string]cachedResult
	eventDedup map[string]dedupRecord
}

func NewStore(seed []entities.Ballot) *Store {
	ballots := make(map[string]entities.Ballot, len(seed))
	for _, ballot := range seed {
		ballots[ballot.BallotID] = ballot
	}
	return &Store{
		ballots:    ballots,
		polls:      make(map[string]ports.PollProjection),
		cache:      make(map[string]cachedResult),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) SetPoll(poll ports.PollProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[strings.TrimSpace(poll.PollID)] = poll
}

func (s *Store) AddBallot(ballot entities.Ballot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots[strings.TrimSpace(ballot.BallotID)] = ballot
}

func (s *Store) GetPoll(_ context.Context, pollID string) (ports.PollProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return ports.PollProjection{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) ListBallotsByPoll(_ context.Context, pollID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if ballot.PollID == strings.TrimSpace(pollID) {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].CastAt.Before(items[j].CastAt)
		}
		if items[i].Sequence != items[j].Sequence {
			return items[i].Sequence < items[j].Sequence
		}
		return items[i].BallotID < items[j].BallotID
	})
	return items, nil
}

func (s *Store) Get(_ context.Context, pollID string) (entities.TabulationResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(pollID)
	entry, ok := s.cache[key]
	if !ok {
		return entities.TabulationResult{}, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().UTC().After(entry.expiresAt) {
		delete(s.cache, key)
		return entities.TabulationResult{}, false, nil
	}
	return entry.result, true, nil
}

func (s *Store) Put(_ context.Context, result entities.TabulationResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := cachedResult{result: result}
	if ttl > 0 {
		entry.expiresAt = time.Now().UTC().Add(ttl)
	}
	s.cache[strings.TrimSpace(result.PollID)] = entry
	return nil
}

func (s *Store) Invalidate(_ context.Context, pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, strings.TrimSpace(pollID))
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.BallotReader = (*Store)(nil)
var _ ports.PollReader = (*Store)(nil)
var _ ports.ResultCache = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
