package api

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/tally-z-sandbox/ledger"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/storage"
	"github.com/vocdoni/tally-z-sandbox/types"
)

// voteID derives the ledger entry ID from the scope and the nullifier. The
// nullifier is unique within its scope, so the ID is too.
func voteID(scope, nullifier types.HexBytes) types.HexBytes {
	h := sha256.New()
	var lenBuf [binary.MaxVarintLen64]byte
	for _, field := range [][]byte{scope, nullifier} {
		n := binary.PutUvarint(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:n])
		h.Write(field)
	}
	return h.Sum(nil)
}

// positionParam extracts and parses the ledger position URL parameter.
func positionParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, PositionURLParam), 10, 64)
}

// newVote submits a vote to an election
// POST /elections/{electionId}/votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	election, err := a.storage.Election(electionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrElectionNotFound.Withf("election %s", electionID.String()).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	if election.Status != types.ElectionStatusOpen {
		ErrElectionClosed.Withf("election %s", electionID.String()).Write(w)
		return
	}

	vote := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	entry := &types.VoteEntry{
		ID:            voteID(electionID, vote.Nullifier),
		EncryptedVote: vote.EncryptedVote,
		Commitment:    vote.Commitment,
		ZkProof:       vote.ZkProof,
		Nullifier:     vote.Nullifier,
	}
	if err := entry.Validate(); err != nil {
		ErrInvalidVote.WithErr(err).Write(w)
		return
	}

	// both checks are mandatory and run before the ledger is touched
	if !a.credentials.VerifyCredentialSignature(vote.Credential, election.CredentialIssuerKey, vote.Nullifier) {
		promVotesRejected.Inc()
		ErrInvalidCredential.Write(w)
		return
	}
	if !a.ballots.VerifyZkProof(vote.ZkProof, [][]byte{vote.EncryptedVote, vote.Commitment, vote.Nullifier}) {
		promVotesRejected.Inc()
		ErrInvalidBallotProof.Write(w)
		return
	}

	l, err := a.ledgers.Ledger(electionID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	position, proof, err := l.Append(entry)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNullifierUsed):
			promVotesRejected.Inc()
			// deliberately reveals nothing about the recorded vote
			ErrCredentialUsed.Write(w)
		case errors.Is(err, ledger.ErrInvalidEntry):
			ErrInvalidVote.WithErr(err).Write(w)
		default:
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	promVotesAccepted.Inc()
	log.Infow("vote accepted", "electionId", electionID.String(),
		"voteId", entry.ID.String(), "position", position)
	httpWriteJSON(w, &VoteResponse{
		VoteID:   entry.ID,
		Position: position,
		Proof:    proof,
		Snapshot: l.Snapshot(),
	})
}

// vote returns one ledger entry by position
// GET /elections/{electionId}/votes/{position}
func (a *API) vote(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	position, err := positionParam(r)
	if err != nil {
		ErrMalformedParam.Withf("could not parse position: %v", err).Write(w)
		return
	}
	l, err := a.ledgers.Ledger(electionID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	entry, err := l.Entry(position)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidPosition) {
			ErrVoteNotFound.Withf("position %d", position).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, entry)
}

// voteProof returns a fresh inclusion proof for the entry at a position,
// targeting the current ledger root
// GET /elections/{electionId}/votes/{position}/proof
func (a *API) voteProof(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	position, err := positionParam(r)
	if err != nil {
		ErrMalformedParam.Withf("could not parse position: %v", err).Write(w)
		return
	}
	l, err := a.ledgers.Ledger(electionID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	proof, err := l.Proof(position)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidPosition) || errors.Is(err, ledger.ErrLedgerEmpty) {
			ErrVoteNotFound.Withf("position %d", position).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, proof)
}

// verifyProof verifies a self-contained inclusion proof
// POST /proofs/verify
func (a *API) verifyProof(w http.ResponseWriter, r *http.Request) {
	req := &VerifyProofRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.Proof == nil {
		ErrMalformedBody.With("missing proof").Write(w)
		return
	}
	httpWriteJSON(w, &VerifyProofResponse{Valid: ledger.VerifyProof(req.Proof)})
}
