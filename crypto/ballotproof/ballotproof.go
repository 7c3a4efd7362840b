// Package ballotproof carries the ballot validity proof capability used when
// accepting votes. The reference BindingVerifier ties a proof blob to the
// exact ballot it accompanies with a domain-tagged hash over the public
// inputs, which stops proofs from being replayed on other ballots. It makes
// no zero-knowledge claim: deployments with a real prover plug their verifier
// behind the same interface.
package ballotproof

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"

	"github.com/vocdoni/tally-z-sandbox/types"
)

// bindingDomain separates ballot bindings from every other hash in the
// system.
const bindingDomain = "ballot-binding-v1"

// Bind computes the reference binding proof over the ballot public inputs.
// Clients submit the result as their ballot proof.
func Bind(publicInputs [][]byte) types.HexBytes {
	h := sha256.New()
	h.Write([]byte(bindingDomain))
	var lenBuf [binary.MaxVarintLen64]byte
	for _, input := range publicInputs {
		n := binary.PutUvarint(lenBuf[:], uint64(len(input)))
		h.Write(lenBuf[:n])
		h.Write(input)
	}
	return h.Sum(nil)
}

// BindingVerifier is the reference ballot proof capability.
type BindingVerifier struct{}

// VerifyZkProof reports whether the proof matches the binding of the public
// inputs.
func (BindingVerifier) VerifyZkProof(proof types.HexBytes, publicInputs [][]byte) bool {
	expected := Bind(publicInputs)
	return subtle.ConstantTimeCompare(proof, expected) == 1
}
