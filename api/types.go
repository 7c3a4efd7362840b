package api

import (
	"github.com/vocdoni/tally-z-sandbox/types"
)

// NewElection is the request to register an election record. The election ID
// is derived server-side from the chain ID, the nonce and the address
// recovered from the signature, so the registrant proves control of the
// organizer key.
type NewElection struct {
	ChainID               uint32              `json:"chainId"`
	Nonce                 uint64              `json:"nonce"`
	Signature             types.HexBytes      `json:"signature"`
	EncryptionKey         types.HexBytes      `json:"encryptionKey"`
	CredentialIssuerKey   types.HexBytes      `json:"credentialIssuerKey"`
	Trustees              []types.TrusteeInfo `json:"trustees"`
	Questions             int                 `json:"questions"`
	PerQuestionNullifiers bool                `json:"perQuestionNullifiers"`
	MetadataURI           string              `json:"metadataURI"`
}

// NewElectionResponse is the response to an election registration.
type NewElectionResponse struct {
	ElectionID types.HexBytes `json:"electionId"`
}

// ElectionList is the response to an election listing request.
type ElectionList struct {
	Elections []types.HexBytes `json:"elections"`
}

// Vote is the ballot submission payload. The credential authorizes the
// nullifier; the zk proof binds the encrypted vote, the commitment and the
// nullifier together.
type Vote struct {
	EncryptedVote types.HexBytes `json:"encryptedVote"`
	Commitment    types.HexBytes `json:"commitment"`
	ZkProof       types.HexBytes `json:"zkProof"`
	Nullifier     types.HexBytes `json:"nullifier"`
	Credential    types.HexBytes `json:"credential"`
}

// VoteResponse is the receipt for an accepted vote: the assigned ledger
// position, the inclusion proof against the post-append root and the
// snapshot the proof belongs to.
type VoteResponse struct {
	VoteID   types.HexBytes        `json:"voteId"`
	Position uint64                `json:"position"`
	Proof    *types.InclusionProof `json:"proof"`
	Snapshot types.LedgerSnapshot  `json:"snapshot"`
}

// VerifyProofRequest carries a self-contained inclusion proof for stateless
// verification.
type VerifyProofRequest struct {
	Proof *types.InclusionProof `json:"proof"`
}

// VerifyProofResponse is the outcome of a proof verification.
type VerifyProofResponse struct {
	Valid bool `json:"valid"`
}

// StartCeremony is the request to open a decryption ceremony.
type StartCeremony struct {
	RequiredShares int `json:"requiredShares"`
}

// SubmitPartials is one trustee's batch of partial decryptions.
type SubmitPartials struct {
	TrusteeID int                        `json:"trusteeId"`
	Partials  []*types.PartialDecryption `json:"partials"`
}

// CeremonyHistory lists the archived ceremony instances of an election.
type CeremonyHistory struct {
	Instances []*types.Ceremony `json:"instances"`
}
