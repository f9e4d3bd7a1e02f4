// Package pow implements the proof of work puzzle that imposes a cost on
// extending the chain. Finding a proof takes on average 16^Difficulty hash
// evaluations while checking one takes a single evaluation.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"

	gmath "github.com/ethereum/go-ethereum/common/math"
)

// Difficulty is the number of leading '0' characters the hex digest of a
// solution must have. There is no retargeting.
const Difficulty = 4

// checkInterval is how many proofs are tried between checks of the context.
const checkInterval = 4096

// ErrSearchExhausted is returned when every uint64 proof has been tried.
var ErrSearchExhausted = errors.New("proof search space exhausted")

// EventHandler defines a function that is called as the search progresses.
type EventHandler func(v string, args ...any)

// =============================================================================

// Hash returns the hex encoded SHA-256 digest of the decimal representation
// of the last proof followed by the decimal representation of the proof.
func Hash(lastProof uint64, proof uint64) string {
	guess := strconv.FormatUint(lastProof, 10) + strconv.FormatUint(proof, 10)
	sum := sha256.Sum256([]byte(guess))
	return hex.EncodeToString(sum[:])
}

// IsValidProof reports whether the pair solves the puzzle.
func IsValidProof(lastProof uint64, proof uint64) bool {
	return isHashSolved(Hash(lastProof, proof))
}

// FindProof returns the smallest proof that solves the puzzle for the
// specified last proof. The search can't be cancelled; use Search for that.
func FindProof(lastProof uint64) uint64 {
	proof, _ := Search(context.Background(), lastProof, nil)
	return proof
}

// Search tries proofs 0, 1, 2, ... until one solves the puzzle for the
// specified last proof. The result is the same value FindProof returns. When
// the context is cancelled the search stops and the context error is
// returned, which callers should treat as an abandoned search and not as a
// failure to find a proof.
func Search(ctx context.Context, lastProof uint64, ev EventHandler) (uint64, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("pow: Search: MINING: started: lastProof[%d]", lastProof)
	defer ev("pow: Search: MINING: completed")

	if err := ctx.Err(); err != nil {
		ev("pow: Search: MINING: CANCELLED")
		return 0, err
	}

	var proof uint64
	for attempts := uint64(1); ; attempts++ {
		if attempts%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				ev("pow: Search: MINING: CANCELLED: attempts[%d]", attempts)
				return 0, err
			}
		}

		if attempts%1_000_000 == 0 {
			ev("pow: Search: MINING: attempts[%d]", attempts)
		}

		if IsValidProof(lastProof, proof) {
			ev("pow: Search: MINING: SOLVED: lastProof[%d]: proof[%d]: attempts[%d]", lastProof, proof, attempts)
			return proof, nil
		}

		next, overflow := gmath.SafeAdd(proof, 1)
		if overflow {
			return 0, ErrSearchExhausted
		}
		proof = next
	}
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(hash string) bool {
	const match = "0000000000000000"

	if len(hash) != 64 {
		return false
	}

	return hash[:Difficulty] == match[:Difficulty]
}
