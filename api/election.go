package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/tally-z-sandbox/crypto/ethereum"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/storage"
	"github.com/vocdoni/tally-z-sandbox/types"
)

// electionIDParam extracts and decodes the election ID URL parameter.
func electionIDParam(r *http.Request) (types.HexBytes, error) {
	electionID, err := types.HexBytesFromString(chi.URLParam(r, ElectionURLParam))
	if err != nil {
		return nil, err
	}
	if len(electionID) == 0 {
		return nil, fmt.Errorf("empty election ID")
	}
	return electionID, nil
}

// newElection registers an election record
// POST /elections
func (a *API) newElection(w http.ResponseWriter, r *http.Request) {
	e := &NewElection{}
	if err := json.NewDecoder(r.Body).Decode(e); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}

	// Extract the organizer address from the signature
	address, err := ethereum.AddrFromSignature([]byte(fmt.Sprintf("%d%d", e.ChainID, e.Nonce)), e.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}

	// Derive the election ID
	eid := types.ElectionID{
		Address: address,
		Nonce:   e.Nonce,
		ChainID: e.ChainID,
	}
	electionID := types.HexBytes(eid.Marshal())
	if _, err := a.storage.Election(electionID); err == nil {
		ErrElectionExists.Withf("election %s", electionID.String()).Write(w)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}

	election := &types.Election{
		ID:                    electionID,
		Status:                types.ElectionStatusOpen,
		Trustees:              e.Trustees,
		EncryptionKey:         e.EncryptionKey,
		CredentialIssuerKey:   e.CredentialIssuerKey,
		Questions:             e.Questions,
		PerQuestionNullifiers: e.PerQuestionNullifiers,
		MetadataURI:           e.MetadataURI,
	}
	if err := a.storage.SetElection(election); err != nil {
		ErrGenericInternalServerError.Withf("could not store election: %v", err).Write(w)
		return
	}

	log.Infow("new election", "electionId", electionID.String(),
		"organizer", address.Hex(), "trustees", len(e.Trustees))
	httpWriteJSON(w, &NewElectionResponse{ElectionID: electionID})
}

// election returns one election record
// GET /elections/{electionId}
func (a *API) election(w http.ResponseWriter, r *http.Request) {
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
	httpWriteJSON(w, election)
}

// electionList returns the IDs of all registered elections
// GET /elections
func (a *API) electionList(w http.ResponseWriter, r *http.Request) {
	elections, err := a.storage.ListElections()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ElectionList{Elections: elections})
}

// snapshot returns the current ledger snapshot of an election
// GET /elections/{electionId}/snapshot
func (a *API) snapshot(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	if _, err := a.storage.Election(electionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrElectionNotFound.Withf("election %s", electionID.String()).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	l, err := a.ledgers.Ledger(electionID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, l.Snapshot())
}
