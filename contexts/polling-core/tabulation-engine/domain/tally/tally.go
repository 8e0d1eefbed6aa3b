// Package tally implements the per-method counting strategies. Every function
// here is pure: identical inputs produce identical outputs, including the IRV
// elimination order, which the result hash depends on.
package tally

import (
	"math"
	"sort"

	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	domainerrors "choices/contexts/polling-core/tabulation-engine/domain/errors"
)

const (
	MethodSingle    = "single"
	MethodApproval  = "approval"
	MethodRanked    = "ranked"
	MethodQuadratic = "quadratic"
	MethodRange     = "range"
)

// Spec is the method contract ballots are counted under.
type Spec struct {
	PollID    string
	Method    string
	OptionIDs []string
	MinScore  float64
	MaxScore  float64
}

// Outcome is the raw counting result before it is wrapped into a persisted
// TabulationResult.
type Outcome struct {
	Tallies   []entities.OptionTally
	Rounds    []entities.EliminationRound
	Winners   []string
	Tie       bool
	Counted   int
	Exhausted int
}

// DedupeLatest keeps only the highest-sequence ballot per voter. Older revote
// ballots stay in storage for audit but never reach a strategy. The returned
// slice is ordered by (cast time, ballot id) for reproducible IRV runs.
func DedupeLatest(ballots []entities.Ballot) []entities.Ballot {
	latest := make(map[string]entities.Ballot, len(ballots))
	for _, ballot := range ballots {
		current, ok := latest[ballot.VoterID]
		if !ok || ballot.Sequence > current.Sequence {
			latest[ballot.VoterID] = ballot
		}
	}
	items := make([]entities.Ballot, 0, len(latest))
	for _, ballot := range latest {
		items = append(items, ballot)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].CastAt.Before(items[j].CastAt)
		}
		return items[i].BallotID < items[j].BallotID
	})
	return items
}

// Compute dispatches to the method strategy. The switch is exhaustive over the
// supported methods; an unknown method is an error, never a silent zero result.
func Compute(spec Spec, ballots []entities.Ballot) (Outcome, error) {
	switch spec.Method {
	case MethodSingle:
		return computeSingle(spec, ballots)
	case MethodApproval:
		return computeApproval(spec, ballots)
	case MethodRanked:
		return computeRanked(spec, ballots)
	case MethodQuadratic:
		return computeQuadratic(spec, ballots)
	case MethodRange:
		return computeRange(spec, ballots)
	default:
		return Outcome{}, domainerrors.ErrUnsupportedMethod
	}
}

func computeSingle(spec Spec, ballots []entities.Ballot) (Outcome, error) {
	counts := zeroCounts(spec.OptionIDs)
	for _, ballot := range ballots {
		option := ballot.Selection.Option
		if option == "" {
			return Outcome{}, domainerrors.ErrShapeMismatch
		}
		if _, ok := counts[option]; !ok {
			return Outcome{}, domainerrors.ErrShapeMismatch
		}
		counts[option]++
	}
	tallies := sortedTallies(counts)
	winners, tie := leaders(tallies, len(ballots) > 0)
	return Outcome{
		Tallies: tallies,
		Winners: winners,
		Tie:     tie,
		Counted: len(ballots),
	}, nil
}

func computeApproval(spec Spec, ballots []entities.Ballot) (Outcome, error) {
	counts := zeroCounts(spec.OptionIDs)
	for _, ballot := range ballots {
		if len(ballot.Selection.Options) == 0 {
			return Outcome{}, domainerrors.ErrShapeMismatch
		}
		for _, option := range ballot.Selection.Options {
			if _, ok := counts[option]; !ok {
				return Outcome{}, domainerrors.ErrShapeMismatch
			}
			counts[option]++
		}
	}
	tallies := sortedTallies(counts)
	winners, tie := leaders(tallies, len(ballots) > 0)
	return Outcome{
		Tallies: tallies,
		Winners: winners,
		Tie:     tie,
		Counted: len(ballots),
	}, nil
}

func computeRanked(spec Spec, ballots []entities.Ballot) (Outcome, error) {
	rankings := make([][]string, 0, len(ballots))
	optionSet := make(map[string]struct{}, len(spec.OptionIDs))
	for _, id := range spec.OptionIDs {
		optionSet[id] = struct{}{}
	}
	for _, ballot := range ballots {
		if len(ballot.Selection.Ranking) == 0 {
			return Outcome{}, domainerrors.ErrShapeMismatch
		}
		for _, option := range ballot.Selection.Ranking {
			if _, ok := optionSet[option]; !ok {
				return Outcome{}, domainerrors.ErrShapeMismatch
			}
		}
		rankings = append(rankings, ballot.Selection.Ranking)
	}

	if len(rankings) == 0 {
		return Outcome{Tallies: sortedTallies(zeroCounts(spec.OptionIDs))}, nil
	}

	remaining := make(map[string]struct{}, len(spec.OptionIDs))
	for _, id := range spec.OptionIDs {
		remaining[id] = struct{}{}
	}

	rounds := make([]entities.EliminationRound, 0, len(spec.OptionIDs))
	// Bounded by options-1 eliminations, so the loop always terminates.
	for round := 1; ; round++ {
		counts := make(map[string]int, len(remaining))
		for id := range remaining {
			counts[id] = 0
		}
		exhausted := 0
		for _, ranking := range rankings {
			preference, ok := firstPreference(ranking, remaining)
			if !ok {
				exhausted++
				continue
			}
			counts[preference]++
		}
		nonExhausted := len(rankings) - exhausted
		roundCounts := sortedRoundCounts(counts)
		record := entities.EliminationRound{
			Round:     round,
			Counts:    roundCounts,
			Exhausted: exhausted,
		}

		// Majority is strictly more than half of the non-exhausted ballots.
		if nonExhausted > 0 {
			for _, count := range roundCounts {
				if count.Count*2 > nonExhausted {
					rounds = append(rounds, record)
					return rankedOutcome(spec, rounds, []string{count.OptionID}, false, len(ballots), exhausted), nil
				}
			}
		}

		if len(remaining) == 1 {
			rounds = append(rounds, record)
			winner := roundCounts[0].OptionID
			return rankedOutcome(spec, rounds, []string{winner}, false, len(ballots), exhausted), nil
		}

		if allCountsEqual(roundCounts) {
			// Every remaining option is tied; eliminating any of them would be
			// arbitrary, so report an explicit multi-winner tie.
			rounds = append(rounds, record)
			winners := make([]string, 0, len(roundCounts))
			for _, count := range roundCounts {
				winners = append(winners, count.OptionID)
			}
			return rankedOutcome(spec, rounds, winners, true, len(ballots), exhausted), nil
		}

		// Eliminate the lowest first-preference option; ties for lowest break
		// on smallest option id so reruns eliminate in the same order.
		lowest := roundCounts[0]
		for _, count := range roundCounts[1:] {
			if count.Count < lowest.Count {
				lowest = count
			}
		}
		delete(remaining, lowest.OptionID)
		record.Eliminated = []string{lowest.OptionID}
		rounds = append(rounds, record)
	}
}

func rankedOutcome(
	spec Spec,
	rounds []entities.EliminationRound,
	winners []string,
	tie bool,
	counted int,
	exhausted int,
) Outcome {
	// Final tallies report the last round's first-preference counts; options
	// eliminated earlier show zero.
	counts := zeroCounts(spec.OptionIDs)
	final := rounds[len(rounds)-1]
	for _, count := range final.Counts {
		counts[count.OptionID] = float64(count.Count)
	}
	return Outcome{
		Tallies:   sortedTallies(counts),
		Rounds:    rounds,
		Winners:   winners,
		Tie:       tie,
		Counted:   counted,
		Exhausted: exhausted,
	}
}

func computeQuadratic(spec Spec, ballots []entities.Ballot) (Outcome, error) {
	counts := zeroCounts(spec.OptionIDs)
	for _, ballot := range ballots {
		if len(ballot.Selection.Credits) == 0 {
			return Outcome{}, domainerrors.ErrShapeMismatch
		}
		for option, credits := range ballot.Selection.Credits {
			if _, ok := counts[option]; !ok {
				return Outcome{}, domainerrors.ErrShapeMismatch
			}
			counts[option] += math.Sqrt(float64(credits))
		}
	}
	tallies := sortedTallies(counts)
	winners, tie := leaders(tallies, len(ballots) > 0)
	return Outcome{
		Tallies: tallies,
		Winners: winners,
		Tie:     tie,
		Counted: len(ballots),
	}, nil
}

func computeRange(spec Spec, ballots []entities.Ballot) (Outcome, error) {
	counts := zeroCounts(spec.OptionIDs)
	for _, ballot := range ballots {
		if len(ballot.Selection.Scores) == 0 {
			return Outcome{}, domainerrors.ErrShapeMismatch
		}
		for option, score := range ballot.Selection.Scores {
			if _, ok := counts[option]; !ok {
				return Outcome{}, domainerrors.ErrShapeMismatch
			}
			counts[option] += clamp(score, spec.MinScore, spec.MaxScore)
		}
	}
	tallies := sortedTallies(counts)
	winners, tie := leaders(tallies, len(ballots) > 0)
	return Outcome{
		Tallies: tallies,
		Winners: winners,
		Tie:     tie,
		Counted: len(ballots),
	}, nil
}

func firstPreference(ranking []string, remaining map[string]struct{}) (string, bool) {
	for _, option := range ranking {
		if _, ok := remaining[option]; ok {
			return option, true
		}
	}
	return "", false
}

func zeroCounts(optionIDs []string) map[string]float64 {
	counts := make(map[string]float64, len(optionIDs))
	for _, id := range optionIDs {
		counts[id] = 0
	}
	return counts
}

func sortedTallies(counts map[string]float64) []entities.OptionTally {
	tallies := make([]entities.OptionTally, 0, len(counts))
	for id, count := range counts {
		tallies = append(tallies, entities.OptionTally{OptionID: id, Count: count})
	}
	sort.Slice(tallies, func(i, j int) bool {
		return tallies[i].OptionID < tallies[j].OptionID
	})
	return tallies
}

func sortedRoundCounts(counts map[string]int) []entities.RoundCount {
	items := make([]entities.RoundCount, 0, len(counts))
	for id, count := range counts {
		items = append(items, entities.RoundCount{OptionID: id, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].OptionID < items[j].OptionID
	})
	return items
}

func allCountsEqual(counts []entities.RoundCount) bool {
	for _, count := range counts[1:] {
		if count.Count != counts[0].Count {
			return false
		}
	}
	return true
}

// leaders reports the current front-runners by raw count. Ties are reported
// as-is; this layer never breaks a tie arbitrarily.
func leaders(tallies []entities.OptionTally, hasBallots bool) ([]string, bool) {
	if !hasBallots || len(tallies) == 0 {
		return nil, false
	}
	best := tallies[0].Count
	for _, tally := range tallies[1:] {
		if tally.Count > best {
			best = tally.Count
		}
	}
	winners := make([]string, 0, 1)
	for _, tally := range tallies {
		if tally.Count == best {
			winners = append(winners, tally.OptionID)
		}
	}
	return winners, len(winners) > 1
}

func clamp(value float64, low float64, high float64) float64 {
	if high > low {
		if value < low {
			return low
		}
		if value > high {
			return high
		}
	}
	return value
}
