package tally

import (
	"errors"
	"math"
	"testing"
	"time"

	"choices/contexts/polling-core/tabulation-engine/domain/entities"
	domainerrors "choices/contexts/polling-core/tabulation-engine/domain/errors"
)

func singleBallot(id string, voter string, option string, sequence int64, castAt time.Time) entities.Ballot {
	return entities.Ballot{
		BallotID:  id,
		PollID:    "poll-1",
		VoterID:   voter,
		Method:    MethodSingle,
		Selection: entities.Selection{Option: option},
		Sequence:  sequence,
		CastAt:    castAt,
	}
}

func rankedBallot(id string, voter string, ranking []string, castAt time.Time) entities.Ballot {
	return entities.Ballot{
		BallotID:  id,
		PollID:    "poll-1",
		VoterID:   voter,
		Method:    MethodRanked,
		Selection: entities.Selection{Ranking: ranking},
		CastAt:    castAt,
	}
}

func TestComputeSingleCountsAndWinner(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodSingle, OptionIDs: []string{"opt-01", "opt-02", "opt-03"}}
	base := time.Now().UTC()
	ballots := make([]entities.Ballot, 0, 10)
	votes := []string{
		"opt-01", "opt-01", "opt-01", "opt-01",
		"opt-02", "opt-02", "opt-02",
		"opt-03", "opt-03", "opt-03",
	}
	for i, option := range votes {
		ballots = append(ballots, singleBallot(
			string(rune('a'+i)), "voter-"+string(rune('a'+i)), option, 0, base.Add(time.Duration(i)*time.Second),
		))
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute single failed: %v", err)
	}
	want := map[string]float64{"opt-01": 4, "opt-02": 3, "opt-03": 3}
	total := 0.0
	for _, tally := range outcome.Tallies {
		if tally.Count != want[tally.OptionID] {
			t.Fatalf("option %s: got %f, want %f", tally.OptionID, tally.Count, want[tally.OptionID])
		}
		total += tally.Count
	}
	if total != float64(outcome.Counted) {
		t.Fatalf("counts not conserved: sum %f, counted %d", total, outcome.Counted)
	}
	if len(outcome.Winners) != 1 || outcome.Winners[0] != "opt-01" || outcome.Tie {
		t.Fatalf("unexpected winners %v tie=%v", outcome.Winners, outcome.Tie)
	}
}

func TestComputeSingleEmptyBallotSet(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodSingle, OptionIDs: []string{"opt-01", "opt-02"}}
	outcome, err := Compute(spec, nil)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if len(outcome.Winners) != 0 || outcome.Tie {
		t.Fatalf("empty poll should have no winners, got %v", outcome.Winners)
	}
	for _, tally := range outcome.Tallies {
		if tally.Count != 0 {
			t.Fatalf("expected zero tally for %s", tally.OptionID)
		}
	}
}

func TestComputeApproval(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodApproval, OptionIDs: []string{"opt-01", "opt-02", "opt-03"}}
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		{BallotID: "b1", VoterID: "v1", Selection: entities.Selection{Options: []string{"opt-01", "opt-02"}}, CastAt: base},
		{BallotID: "b2", VoterID: "v2", Selection: entities.Selection{Options: []string{"opt-02"}}, CastAt: base},
		{BallotID: "b3", VoterID: "v3", Selection: entities.Selection{Options: []string{"opt-02", "opt-03"}}, CastAt: base},
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute approval failed: %v", err)
	}
	want := map[string]float64{"opt-01": 1, "opt-02": 3, "opt-03": 1}
	for _, tally := range outcome.Tallies {
		if tally.Count != want[tally.OptionID] {
			t.Fatalf("option %s: got %f, want %f", tally.OptionID, tally.Count, want[tally.OptionID])
		}
	}
	if outcome.Counted != 3 {
		t.Fatalf("approval counted should be ballots not approvals, got %d", outcome.Counted)
	}
	if len(outcome.Winners) != 1 || outcome.Winners[0] != "opt-02" {
		t.Fatalf("unexpected winners %v", outcome.Winners)
	}
}

func TestComputeRankedEliminationAndMajority(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodRanked, OptionIDs: []string{"opt-01", "opt-02", "opt-03"}}
	base := time.Now().UTC()
	ballots := make([]entities.Ballot, 0, 12)
	add := func(count int, ranking []string) {
		for i := 0; i < count; i++ {
			id := string(rune('a'+len(ballots))) + "-ranked"
			ballots = append(ballots, rankedBallot(id, "voter-"+id, ranking, base.Add(time.Duration(len(ballots))*time.Second)))
		}
	}
	add(5, []string{"opt-01", "opt-02", "opt-03"})
	add(4, []string{"opt-02", "opt-03", "opt-01"})
	add(3, []string{"opt-03", "opt-01", "opt-02"})

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute ranked failed: %v", err)
	}
	if len(outcome.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(outcome.Rounds))
	}
	first := outcome.Rounds[0]
	if len(first.Eliminated) != 1 || first.Eliminated[0] != "opt-03" {
		t.Fatalf("round 1 should eliminate opt-03, got %v", first.Eliminated)
	}
	second := outcome.Rounds[1]
	counts := map[string]int{}
	for _, count := range second.Counts {
		counts[count.OptionID] = count.Count
	}
	if counts["opt-01"] != 8 || counts["opt-02"] != 4 {
		t.Fatalf("round 2 counts wrong: %v", counts)
	}
	if len(outcome.Winners) != 1 || outcome.Winners[0] != "opt-01" || outcome.Tie {
		t.Fatalf("unexpected winners %v tie=%v", outcome.Winners, outcome.Tie)
	}
}

func TestComputeRankedExhaustedBallots(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodRanked, OptionIDs: []string{"opt-01", "opt-02", "opt-03"}}
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		rankedBallot("b1", "v1", []string{"opt-01"}, base),
		rankedBallot("b2", "v2", []string{"opt-01"}, base),
		rankedBallot("b3", "v3", []string{"opt-02"}, base),
		rankedBallot("b4", "v4", []string{"opt-03"}, base),
		rankedBallot("b5", "v5", []string{"opt-03"}, base),
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute ranked failed: %v", err)
	}
	// opt-02 is eliminated first; its only ballot has no later preference, so
	// it exhausts and the majority denominator shrinks to 4, leaving opt-01 and
	// opt-03 tied at 2 each.
	if outcome.Exhausted != 1 {
		t.Fatalf("expected 1 exhausted ballot, got %d", outcome.Exhausted)
	}
	last := outcome.Rounds[len(outcome.Rounds)-1]
	if last.Exhausted != 1 {
		t.Fatalf("expected 1 exhausted ballot in final round, got %d", last.Exhausted)
	}
	if !outcome.Tie || len(outcome.Winners) != 2 {
		t.Fatalf("expected two-way tie after exhaustion, got winners=%v tie=%v", outcome.Winners, outcome.Tie)
	}
}

func TestComputeRankedAllRemainingTied(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodRanked, OptionIDs: []string{"opt-01", "opt-02"}}
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		rankedBallot("b1", "v1", []string{"opt-01", "opt-02"}, base),
		rankedBallot("b2", "v2", []string{"opt-02", "opt-01"}, base),
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute ranked failed: %v", err)
	}
	if !outcome.Tie || len(outcome.Winners) != 2 {
		t.Fatalf("expected explicit two-way tie, got winners=%v tie=%v", outcome.Winners, outcome.Tie)
	}
}

func TestComputeRankedTerminates(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodRanked, OptionIDs: []string{"opt-01", "opt-02", "opt-03", "opt-04"}}
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		rankedBallot("b1", "v1", []string{"opt-01", "opt-02"}, base),
		rankedBallot("b2", "v2", []string{"opt-02", "opt-01"}, base),
		rankedBallot("b3", "v3", []string{"opt-03", "opt-01"}, base),
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute ranked failed: %v", err)
	}
	if len(outcome.Rounds) > len(spec.OptionIDs) {
		t.Fatalf("rounds exceeded option count: %d", len(outcome.Rounds))
	}
	if len(outcome.Winners) == 0 {
		t.Fatalf("expected a winner, got %+v", outcome)
	}
}

func TestComputeQuadraticSqrtTally(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodQuadratic, OptionIDs: []string{"opt-01", "opt-02"}}
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		{BallotID: "b1", VoterID: "v1", Selection: entities.Selection{Credits: map[string]int{"opt-01": 4, "opt-02": 1}}, CastAt: base},
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute quadratic failed: %v", err)
	}
	want := map[string]float64{"opt-01": 2.0, "opt-02": 1.0}
	for _, tally := range outcome.Tallies {
		if math.Abs(tally.Count-want[tally.OptionID]) > 1e-9 {
			t.Fatalf("option %s: got %f, want %f", tally.OptionID, tally.Count, want[tally.OptionID])
		}
	}
}

func TestComputeRangeClampsScores(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodRange, OptionIDs: []string{"opt-01"}, MinScore: 0, MaxScore: 10}
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		{BallotID: "b1", VoterID: "v1", Selection: entities.Selection{Scores: map[string]float64{"opt-01": 15}}, CastAt: base},
		{BallotID: "b2", VoterID: "v2", Selection: entities.Selection{Scores: map[string]float64{"opt-01": 5}}, CastAt: base},
	}

	outcome, err := Compute(spec, ballots)
	if err != nil {
		t.Fatalf("compute range failed: %v", err)
	}
	if outcome.Tallies[0].Count != 15 {
		t.Fatalf("expected clamped sum 15, got %f", outcome.Tallies[0].Count)
	}
}

func TestComputeShapeMismatch(t *testing.T) {
	spec := Spec{PollID: "poll-1", Method: MethodSingle, OptionIDs: []string{"opt-01"}}
	ballots := []entities.Ballot{
		{BallotID: "b1", VoterID: "v1", Selection: entities.Selection{Option: "opt-99"}},
	}
	if _, err := Compute(spec, ballots); !errors.Is(err, domainerrors.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}

func TestComputeUnsupportedMethod(t *testing.T) {
	if _, err := Compute(Spec{Method: "borda"}, nil); !errors.Is(err, domainerrors.ErrUnsupportedMethod) {
		t.Fatalf("expected unsupported method, got %v", err)
	}
}

func TestDedupeLatestKeepsHighestSequence(t *testing.T) {
	base := time.Now().UTC()
	ballots := []entities.Ballot{
		singleBallot("b1", "v1", "opt-01", 0, base),
		singleBallot("b2", "v1", "opt-02", 1, base.Add(time.Minute)),
		singleBallot("b3", "v2", "opt-01", 0, base.Add(2*time.Minute)),
	}

	effective := DedupeLatest(ballots)
	if len(effective) != 2 {
		t.Fatalf("expected 2 effective ballots, got %d", len(effective))
	}
	for _, ballot := range effective {
		if ballot.VoterID == "v1" && ballot.Selection.Option != "opt-02" {
			t.Fatalf("revote should supersede: got %s", ballot.Selection.Option)
		}
	}
}
