package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tally-z-sandbox/api"
	"github.com/vocdoni/tally-z-sandbox/api/client"
	"github.com/vocdoni/tally-z-sandbox/crypto/ballotproof"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal/threshold"
	"github.com/vocdoni/tally-z-sandbox/crypto/ethereum"
	"github.com/vocdoni/tally-z-sandbox/types"
	"github.com/vocdoni/tally-z-sandbox/util"
)

// generateTrustees deals a fresh election key into shares for the given
// trustee IDs. It returns the election public key, the trustee-side
// participants keyed by ID and the roster published with the election.
func generateTrustees(c *qt.C, required int, ids []int) (*bn254.G1Affine, map[int]*threshold.Participant, []types.TrusteeInfo) {
	electionKey, shares, err := threshold.GenerateKey(required, ids)
	c.Assert(err, qt.IsNil)

	participants := make(map[int]*threshold.Participant, len(ids))
	roster := make([]types.TrusteeInfo, 0, len(ids))
	for _, id := range ids {
		p := threshold.NewParticipant(id, shares[id])
		participants[id] = p
		roster = append(roster, types.TrusteeInfo{
			ID:               id,
			PublicCommitment: p.Commitment().Marshal(),
		})
	}
	return electionKey, participants, roster
}

// createElection registers an election signed by the organizer and returns
// the server-derived election ID.
func createElection(c *qt.C, cli *client.HTTPclient, organizer, issuer *ethereum.SignKeys,
	encryptionKey *bn254.G1Affine, trustees []types.TrusteeInfo,
) types.HexBytes {
	nonce := uint64(1)
	chainID := uint32(1)

	// Sign the election registration request
	msg := []byte(fmt.Sprintf("%d%d", chainID, nonce))
	signature, err := organizer.SignEthereum(msg)
	c.Assert(err, qt.IsNil)

	election := &api.NewElection{
		ChainID:             chainID,
		Nonce:               nonce,
		Signature:           signature,
		EncryptionKey:       encryptionKey.Marshal(),
		CredentialIssuerKey: issuer.PublicKey(),
		Trustees:            trustees,
		Questions:           1,
		MetadataURI:         "https://example.com/metadata",
	}

	body, code, err := cli.Request(http.MethodPost, election, nil, api.ElectionsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))

	var resp api.NewElectionResponse
	err = json.NewDecoder(bytes.NewReader(body)).Decode(&resp)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.ElectionID, qt.Not(qt.HasLen), 0)
	return resp.ElectionID
}

// createVote builds a ballot for the given choice encrypted under the
// election key, with a credential from the issuer over a fresh nullifier.
func createVote(c *qt.C, issuer *ethereum.SignKeys, encryptionKey *bn254.G1Affine, choice uint64) api.Vote {
	nullifier := util.RandomBytes(types.NullifierLen)
	credential, err := issuer.SignEthereum(nullifier)
	c.Assert(err, qt.IsNil)

	ciphertext, _, err := elgamal.Encrypt(encryptionKey, new(big.Int).SetUint64(choice))
	c.Assert(err, qt.IsNil)
	encryptedVote := types.HexBytes(ciphertext.Serialize())
	commitment := types.HexBytes(util.RandomBytes(32))

	return api.Vote{
		EncryptedVote: encryptedVote,
		Commitment:    commitment,
		ZkProof:       ballotproof.Bind([][]byte{encryptedVote, commitment, nullifier}),
		Nullifier:     nullifier,
		Credential:    credential,
	}
}

// submitVote casts a vote and returns the ledger receipt.
func submitVote(c *qt.C, cli *client.HTTPclient, electionID types.HexBytes, vote api.Vote) *api.VoteResponse {
	endpoint := api.EndpointWithParam(api.VotesEndpoint, api.ElectionURLParam, electionID.String())
	body, code, err := cli.Request(http.MethodPost, vote, nil, endpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))

	var resp api.VoteResponse
	err = json.NewDecoder(bytes.NewReader(body)).Decode(&resp)
	c.Assert(err, qt.IsNil)
	return &resp
}

// fetchEntry retrieves the ledger entry at the given position.
func fetchEntry(c *qt.C, cli *client.HTTPclient, electionID types.HexBytes, position uint64) *types.VoteEntry {
	endpoint := api.EndpointWithParam(api.VoteEndpoint, api.ElectionURLParam, electionID.String())
	endpoint = api.EndpointWithParam(endpoint, api.PositionURLParam, fmt.Sprintf("%d", position))
	body, code, err := cli.Request(http.MethodGet, nil, nil, endpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))

	var entry types.VoteEntry
	err = json.NewDecoder(bytes.NewReader(body)).Decode(&entry)
	c.Assert(err, qt.IsNil)
	return &entry
}

// submitPartials computes and submits one trustee's partial decryptions for
// the given ledger entries, returning the response body and status code.
func submitPartials(c *qt.C, cli *client.HTTPclient, electionID types.HexBytes,
	participant *threshold.Participant, entries []*types.VoteEntry,
) ([]byte, int) {
	scheme := threshold.NewScheme(0)
	partials := make([]*types.PartialDecryption, 0, len(entries))
	for _, entry := range entries {
		partial, err := scheme.ProvePartial(participant, entry.ID, entry.EncryptedVote)
		c.Assert(err, qt.IsNil)
		partials = append(partials, partial)
	}

	endpoint := api.EndpointWithParam(api.CeremonyPartialsEndpoint, api.ElectionURLParam, electionID.String())
	body, code, err := cli.Request(http.MethodPost, &api.SubmitPartials{
		TrusteeID: participant.ID,
		Partials:  partials,
	}, nil, endpoint)
	c.Assert(err, qt.IsNil)
	return body, code
}

// apiErrorCode extracts the error code from an API error response body.
func apiErrorCode(c *qt.C, body []byte) int {
	var apiErr struct {
		Code int `json:"code"`
	}
	err := json.Unmarshal(body, &apiErr)
	c.Assert(err, qt.IsNil, qt.Commentf("response body %s", string(body)))
	return apiErr.Code
}
