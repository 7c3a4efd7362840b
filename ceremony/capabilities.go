package ceremony

import "github.com/vocdoni/tally-z-sandbox/types"

// PartialVerifier checks that one partial decryption was correctly derived
// from a trustee's committed key share. The coordinator supplies the
// encrypted vote from the bound ledger entry, so a proof cannot be bound to
// a ciphertext of the trustee's own choosing.
type PartialVerifier interface {
	VerifyPartialProof(partial *types.PartialDecryption, encryptedVote, trusteeCommitment types.HexBytes) bool
}

// PartialCombiner combines a quorum of partial decryptions of one encrypted
// vote into the plaintext choice.
type PartialCombiner interface {
	CombinePartials(entryID types.HexBytes, encryptedVote types.HexBytes,
		partials []*types.PartialDecryption) (uint64, error)
}

// CredentialVerifier checks that a voting credential authorizes the
// presented nullifier under the election's issuer key.
type CredentialVerifier interface {
	VerifyCredentialSignature(credential, publicKey, nullifier types.HexBytes) bool
}

// BallotProofVerifier checks the validity proof accompanying an encrypted
// ballot against its public inputs.
type BallotProofVerifier interface {
	VerifyZkProof(proof types.HexBytes, publicInputs [][]byte) bool
}
