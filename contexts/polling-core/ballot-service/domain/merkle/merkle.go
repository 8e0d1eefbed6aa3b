// Package merkle builds the ballot commitment tree. The tree is derived on
// demand from the append-only ballot log, so there is no second mutable
// structure that could drift from the source of record.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"choices/contexts/polling-core/ballot-service/domain/entities"
)

var ErrLeafOutOfRange = errors.New("merkle leaf index out of range")

// LeafHash commits to everything that makes a ballot countable. Selection maps
// are marshaled through encoding/json, which sorts keys, so the hash is stable
// across recomputations.
func LeafHash(ballot entities.Ballot) string {
	payload, _ := json.Marshal(struct {
		BallotID  string             `json:"ballot_id"`
		PollID    string             `json:"poll_id"`
		VoterID   string             `json:"voter_id"`
		Method    string             `json:"method"`
		Selection entities.Selection `json:"selection"`
		Sequence  int64              `json:"sequence"`
		CastAt    string             `json:"cast_at"`
	}{
		BallotID:  ballot.BallotID,
		PollID:    ballot.PollID,
		VoterID:   ballot.VoterID,
		Method:    ballot.Method,
		Selection: ballot.Selection,
		Sequence:  ballot.Sequence,
		CastAt:    ballot.CastAt.UTC().Format(time.RFC3339Nano),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type ProofStep struct {
	Hash string
	Left bool
}

// Tree holds every level of the commitment tree, leaves first. An odd node at
// any level is promoted by pairing it with itself.
type Tree struct {
	levels [][]string
}

func BuildTree(leaves []string) Tree {
	if len(leaves) == 0 {
		return Tree{}
	}
	levels := [][]string{append([]string(nil), leaves...)}
	for len(levels[len(levels)-1]) > 1 {
		current := levels[len(levels)-1]
		next := make([]string, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashPair(current[i], current[i+1]))
			} else {
				next = append(next, hashPair(current[i], current[i]))
			}
		}
		levels = append(levels, next)
	}
	return Tree{levels: levels}
}

func (t Tree) LeafCount() int {
	if len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

func (t Tree) Root() string {
	if len(t.levels) == 0 {
		return ""
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path from the leaf at index up to the root.
func (t Tree) Proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, ErrLeafOutOfRange
	}
	steps := make([]ProofStep, 0, len(t.levels))
	position := index
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := position ^ 1
		if sibling >= len(level) {
			sibling = position
		}
		steps = append(steps, ProofStep{
			Hash: level[sibling],
			Left: sibling < position,
		})
		position /= 2
	}
	return steps, nil
}

func VerifyProof(leaf string, steps []ProofStep, root string) bool {
	current := leaf
	for _, step := range steps {
		if step.Left {
			current = hashPair(step.Hash, current)
		} else {
			current = hashPair(current, step.Hash)
		}
	}
	return current == root
}

func hashPair(left string, right string) string {
	sum := sha256.Sum256([]byte(left + right))
	return hex.EncodeToString(sum[:])
}
