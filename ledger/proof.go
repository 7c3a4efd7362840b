package ledger

import (
	"crypto/subtle"

	"github.com/vocdoni/tally-z-sandbox/types"
)

// VerifyProof checks an inclusion proof against the root it carries. It is a
// pure function: no ledger state is consulted, so any holder of a proof and
// a trusted root can run the same check.
//
// The leaf is folded upward through the siblings strictly by the recorded
// side of each sibling: a "left" sibling is hashed before the running node,
// a "right" sibling after it. The two orderings produce different parents,
// which is what makes the side tags load-bearing; a proof with swapped tags
// computes a different root and fails.
func VerifyProof(proof *types.InclusionProof) bool {
	if proof == nil || len(proof.Leaf) == 0 || len(proof.Root) == 0 {
		return false
	}
	if len(proof.Siblings) != len(proof.Positions) {
		return false
	}
	cur := []byte(proof.Leaf)
	for i, sibling := range proof.Siblings {
		switch proof.Positions[i] {
		case types.SiblingLeft:
			cur = hashNodes(sibling, cur)
		case types.SiblingRight:
			cur = hashNodes(cur, sibling)
		default:
			return false
		}
	}
	return subtle.ConstantTimeCompare(cur, proof.Root) == 1
}
