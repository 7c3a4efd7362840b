package threshold

import (
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal"
	"github.com/vocdoni/tally-z-sandbox/types"
)

// DefaultMaxMessage bounds the discrete log search when recovering plaintext
// choices from combined partial decryptions.
const DefaultMaxMessage = 1 << 20

// Scheme adapts the threshold primitives to the opaque byte-level capability
// interfaces the decryption ceremony consumes. Partial decryption values are
// serialized G1 points and correctness proofs serialized Chaum-Pedersen
// proofs; encrypted votes are serialized elgamal.Ciphertext.
type Scheme struct {
	// MaxMessage overrides DefaultMaxMessage when non-zero.
	MaxMessage uint64
}

// NewScheme creates a Scheme bounding recovered plaintexts to maxMessage.
// Pass zero to use DefaultMaxMessage.
func NewScheme(maxMessage uint64) *Scheme {
	return &Scheme{MaxMessage: maxMessage}
}

func (s *Scheme) maxMessage() uint64 {
	if s.MaxMessage == 0 {
		return DefaultMaxMessage
	}
	return s.MaxMessage
}

// ProvePartial computes a trustee's partial decryption of an encrypted vote
// along with its correctness proof, ready for ceremony submission.
func (s *Scheme) ProvePartial(p *Participant, entryID, encryptedVote types.HexBytes) (*types.PartialDecryption, error) {
	ct := elgamal.NewCiphertext()
	if err := ct.Deserialize(encryptedVote); err != nil {
		return nil, fmt.Errorf("invalid encrypted vote: %w", err)
	}
	value := p.PartialDecrypt(&ct.C1)
	proof, err := Prove(p.Share, &ct.C1)
	if err != nil {
		return nil, err
	}
	return &types.PartialDecryption{
		TrusteeID:        p.ID,
		EntryID:          entryID,
		Value:            value.Marshal(),
		CorrectnessProof: proof.Serialize(),
	}, nil
}

// VerifyPartialProof checks that a partial decryption was correctly computed
// from the trustee's committed share and the encrypted vote it claims to
// decrypt. Any malformed input fails verification.
func (s *Scheme) VerifyPartialProof(partial *types.PartialDecryption, encryptedVote, trusteeCommitment types.HexBytes) bool {
	if partial == nil {
		return false
	}
	ct := elgamal.NewCiphertext()
	if err := ct.Deserialize(encryptedVote); err != nil {
		return false
	}
	var value, commitment bn254.G1Affine
	if _, err := value.SetBytes(partial.Value); err != nil {
		return false
	}
	if _, err := commitment.SetBytes(trusteeCommitment); err != nil {
		return false
	}
	proof := new(Proof)
	if err := proof.Deserialize(partial.CorrectnessProof); err != nil {
		return false
	}
	return Verify(proof, &ct.C1, &commitment, &value)
}

// CombinePartials combines a quorum of partial decryptions of one encrypted
// vote and recovers the plaintext choice.
func (s *Scheme) CombinePartials(entryID types.HexBytes, encryptedVote types.HexBytes, partials []*types.PartialDecryption) (uint64, error) {
	ct := elgamal.NewCiphertext()
	if err := ct.Deserialize(encryptedVote); err != nil {
		return 0, fmt.Errorf("entry %x: invalid encrypted vote: %w", entryID, err)
	}
	values := make(map[int]*bn254.G1Affine, len(partials))
	ids := make([]int, 0, len(partials))
	for _, partial := range partials {
		if _, ok := values[partial.TrusteeID]; ok {
			return 0, fmt.Errorf("entry %x: duplicate partial from trustee %d", entryID, partial.TrusteeID)
		}
		var value bn254.G1Affine
		if _, err := value.SetBytes(partial.Value); err != nil {
			return 0, fmt.Errorf("entry %x: invalid partial value from trustee %d: %w", entryID, partial.TrusteeID, err)
		}
		values[partial.TrusteeID] = &value
		ids = append(ids, partial.TrusteeID)
	}
	sort.Ints(ids)
	message, err := CombinePartialDecryptions(&ct.C2, values, ids, s.maxMessage())
	if err != nil {
		return 0, fmt.Errorf("entry %x: %w", entryID, err)
	}
	if !message.IsUint64() {
		return 0, fmt.Errorf("entry %x: recovered message out of range", entryID)
	}
	return message.Uint64(), nil
}
