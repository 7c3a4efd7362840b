package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tally-z-sandbox/api"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal/threshold"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/types"
	"github.com/vocdoni/tally-z-sandbox/util"
)

func init() {
	log.Init(log.LogLevelDebug, "stdout", nil)
}

// TestIntegration walks an election through its whole life over the HTTP API:
// registration, credentialed encrypted votes with inclusion proofs, the
// threshold decryption ceremony and the final tally.
func TestIntegration(t *testing.T) {
	c := qt.New(t)

	// Setup
	tmpPort, err := SetupAPI(t.TempDir())
	c.Assert(err, qt.IsNil)

	organizer, err := NewTestSigner()
	c.Assert(err, qt.IsNil)
	issuer, err := NewTestSigner()
	c.Assert(err, qt.IsNil)

	cli, err := NewTestClient(tmpPort)
	c.Assert(err, qt.IsNil)

	// Deal the election key into 5 shares, any 3 of which can decrypt
	electionKey, participants, roster := generateTrustees(c, 3, []int{1, 2, 3, 4, 5})

	var electionID types.HexBytes
	choices := []uint64{1, 2, 1, 3, 2}
	votes := []api.Vote{}
	receipts := []*api.VoteResponse{}

	c.Run("register election", func(c *qt.C) {
		electionID = createElection(c, cli, organizer, issuer, electionKey, roster)
		c.Logf("Election ID: %s", electionID.String())

		// Retrieve the stored record
		endpoint := api.EndpointWithParam(api.ElectionEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err := cli.Request(http.MethodGet, nil, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))

		var election types.Election
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&election)
		c.Assert(err, qt.IsNil)
		c.Assert(election.Status, qt.Equals, types.ElectionStatusOpen)
		c.Assert(election.Trustees, qt.HasLen, 5)
		c.Assert(election.CredentialIssuerKey.String(), qt.Equals, issuer.PublicKey().String())

		// The listing includes the new election
		body, code, err = cli.Request(http.MethodGet, nil, nil, api.ElectionsEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK)
		var list api.ElectionList
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&list)
		c.Assert(err, qt.IsNil)
		c.Assert(list.Elections, qt.Any(qt.DeepEquals), electionID)

		// Registering the same election again is rejected
		signature, err := organizer.SignEthereum([]byte(fmt.Sprintf("%d%d", 1, 1)))
		c.Assert(err, qt.IsNil)
		body, code, err = cli.Request(http.MethodPost, &api.NewElection{
			ChainID:             1,
			Nonce:               1,
			Signature:           signature,
			EncryptionKey:       electionKey.Marshal(),
			CredentialIssuerKey: issuer.PublicKey(),
			Trustees:            roster,
		}, nil, api.ElectionsEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrElectionExists.Code)
	})

	c.Run("cast votes", func(c *qt.C) {
		for i, choice := range choices {
			vote := createVote(c, issuer, electionKey, choice)
			receipt := submitVote(c, cli, electionID, vote)
			c.Assert(receipt.Position, qt.Equals, uint64(i))
			c.Assert(receipt.VoteID, qt.Not(qt.HasLen), 0)
			c.Assert(receipt.Snapshot.VoteCount, qt.Equals, uint64(i+1))
			c.Assert(receipt.Proof, qt.Not(qt.IsNil))
			c.Assert(receipt.Proof.Root.String(), qt.Equals, receipt.Snapshot.Root.String())
			votes = append(votes, vote)
			receipts = append(receipts, receipt)
		}

		// every receipt proof verifies statelessly against its own root
		for _, receipt := range receipts {
			body, code, err := cli.Request(http.MethodPost, &api.VerifyProofRequest{Proof: receipt.Proof}, nil, api.VerifyProofEndpoint)
			c.Assert(err, qt.IsNil)
			c.Assert(code, qt.Equals, http.StatusOK)
			var verified api.VerifyProofResponse
			err = json.NewDecoder(bytes.NewReader(body)).Decode(&verified)
			c.Assert(err, qt.IsNil)
			c.Assert(verified.Valid, qt.IsTrue)
		}
	})

	c.Run("reject invalid votes", func(c *qt.C) {
		endpoint := api.EndpointWithParam(api.VotesEndpoint, api.ElectionURLParam, electionID.String())

		// replaying a spent credential reveals nothing but the rejection
		body, code, err := cli.Request(http.MethodPost, votes[0], nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrCredentialUsed.Code)

		// a credential signed by anyone but the issuer is rejected
		forged := createVote(c, organizer, electionKey, 1)
		body, code, err = cli.Request(http.MethodPost, forged, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrInvalidCredential.Code)

		// a ballot proof bound to different public inputs is rejected
		tampered := createVote(c, issuer, electionKey, 1)
		tampered.Commitment = util.RandomBytes(32)
		body, code, err = cli.Request(http.MethodPost, tampered, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrInvalidBallotProof.Code)

		// structurally incomplete votes never reach the checks
		body, code, err = cli.Request(http.MethodPost, &api.Vote{Nullifier: util.RandomBytes(32)}, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrInvalidVote.Code)

		// votes to unknown elections are not found
		unknown := api.EndpointWithParam(api.VotesEndpoint, api.ElectionURLParam, types.HexBytes(util.RandomBytes(32)).String())
		body, code, err = cli.Request(http.MethodPost, votes[0], nil, unknown)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusNotFound)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrElectionNotFound.Code)

		// none of the rejections appended anything
		endpoint = api.EndpointWithParam(api.SnapshotEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err = cli.Request(http.MethodGet, nil, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK)
		var snapshot types.LedgerSnapshot
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&snapshot)
		c.Assert(err, qt.IsNil)
		c.Assert(snapshot.VoteCount, qt.Equals, uint64(len(choices)))
		c.Assert(snapshot.Root.String(), qt.Equals, receipts[len(receipts)-1].Snapshot.Root.String())
	})

	c.Run("ledger queries", func(c *qt.C) {
		// entries come back by position
		entry := fetchEntry(c, cli, electionID, 0)
		c.Assert(entry.ID.String(), qt.Equals, receipts[0].VoteID.String())
		c.Assert(entry.Nullifier.String(), qt.Equals, votes[0].Nullifier.String())

		// a fresh proof for an early entry targets the current root
		endpoint := api.EndpointWithParam(api.VoteProofEndpoint, api.ElectionURLParam, electionID.String())
		endpoint = api.EndpointWithParam(endpoint, api.PositionURLParam, "0")
		body, code, err := cli.Request(http.MethodGet, nil, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))
		var proof types.InclusionProof
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&proof)
		c.Assert(err, qt.IsNil)
		c.Assert(proof.Root.String(), qt.Equals, receipts[len(receipts)-1].Snapshot.Root.String())

		body, code, err = cli.Request(http.MethodPost, &api.VerifyProofRequest{Proof: &proof}, nil, api.VerifyProofEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK)
		var verified api.VerifyProofResponse
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&verified)
		c.Assert(err, qt.IsNil)
		c.Assert(verified.Valid, qt.IsTrue)

		// positions beyond the ledger are not found
		endpoint = api.EndpointWithParam(api.VoteEndpoint, api.ElectionURLParam, electionID.String())
		endpoint = api.EndpointWithParam(endpoint, api.PositionURLParam, "99")
		body, code, err = cli.Request(http.MethodGet, nil, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusNotFound)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrVoteNotFound.Code)
	})

	c.Run("decryption ceremony", func(c *qt.C) {
		ceremonyEndpoint := api.EndpointWithParam(api.CeremonyEndpoint, api.ElectionURLParam, electionID.String())
		resultEndpoint := api.EndpointWithParam(api.CeremonyResultEndpoint, api.ElectionURLParam, electionID.String())

		// no ceremony exists yet
		body, code, err := cli.Request(http.MethodGet, nil, nil, ceremonyEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusNotFound)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrCeremonyNotFound.Code)

		// a quorum larger than the roster is rejected
		body, code, err = cli.Request(http.MethodPost, &api.StartCeremony{RequiredShares: 6}, nil, ceremonyEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrInvalidShares.Code)

		// start the ceremony, binding the current snapshot
		body, code, err = cli.Request(http.MethodPost, &api.StartCeremony{RequiredShares: 3}, nil, ceremonyEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))
		var cer types.Ceremony
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&cer)
		c.Assert(err, qt.IsNil)
		c.Assert(cer.Status, qt.Equals, types.CeremonyInProgress)
		c.Assert(cer.RequiredShares, qt.Equals, 3)
		c.Assert(cer.BoundSnapshot.VoteCount, qt.Equals, uint64(len(choices)))
		c.Assert(cer.Trustees, qt.HasLen, 5)

		// a second start conflicts with the running instance
		body, code, err = cli.Request(http.MethodPost, &api.StartCeremony{RequiredShares: 3}, nil, ceremonyEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusConflict)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrCeremonyExists.Code)

		// no result before the quorum
		body, code, err = cli.Request(http.MethodGet, nil, nil, resultEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusNotFound)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrResultNotReady.Code)

		// once the ceremony runs, the election takes no more votes
		late := createVote(c, issuer, electionKey, 1)
		votesEndpoint := api.EndpointWithParam(api.VotesEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err = cli.Request(http.MethodPost, late, nil, votesEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrElectionClosed.Code)

		// trustees fetch the bound entries to decrypt
		entries := make([]*types.VoteEntry, 0, cer.BoundSnapshot.VoteCount)
		for position := uint64(0); position < cer.BoundSnapshot.VoteCount; position++ {
			entries = append(entries, fetchEntry(c, cli, electionID, position))
		}

		// an outsider with a stolen share is not on the roster
		outsider := threshold.NewParticipant(9, participants[1].Share)
		body, code = submitPartials(c, cli, electionID, outsider, entries)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrUnknownTrustee.Code)

		// first trustee submits shares for every bound entry
		body, code = submitPartials(c, cli, electionID, participants[2], entries)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))
		var state types.CeremonyState
		err = json.Unmarshal(body, &state)
		c.Assert(err, qt.IsNil)
		c.Assert(state.Status, qt.Equals, types.CeremonyInProgress)
		c.Assert(state.ReceivedShares, qt.Equals, 1)
		c.Assert(state.BoundVoteCount, qt.Equals, uint64(len(choices)))

		// the same trustee cannot count twice
		body, code = submitPartials(c, cli, electionID, participants[2], entries)
		c.Assert(code, qt.Equals, http.StatusConflict)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrDuplicateTrustee.Code)

		// a batch of garbage shares counts for nothing
		partialsEndpoint := api.EndpointWithParam(api.CeremonyPartialsEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err = cli.Request(http.MethodPost, &api.SubmitPartials{
			TrusteeID: 4,
			Partials: []*types.PartialDecryption{{
				TrusteeID:        4,
				EntryID:          entries[0].ID,
				Value:            util.RandomBytes(8),
				CorrectnessProof: util.RandomBytes(8),
			}},
		}, nil, partialsEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrNoValidPartials.Code)

		// so the trustee may retry with honest shares
		body, code = submitPartials(c, cli, electionID, participants[4], entries)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))
		err = json.Unmarshal(body, &state)
		c.Assert(err, qt.IsNil)
		c.Assert(state.ReceivedShares, qt.Equals, 2)

		// the third submission reaches the quorum and combines the tally
		body, code = submitPartials(c, cli, electionID, participants[5], entries)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))
		err = json.Unmarshal(body, &state)
		c.Assert(err, qt.IsNil)
		c.Assert(state.Status, qt.Equals, types.CeremonyCompleted)
		c.Assert(state.ReceivedShares, qt.Equals, 3)
	})

	c.Run("tally result", func(c *qt.C) {
		resultEndpoint := api.EndpointWithParam(api.CeremonyResultEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err := cli.Request(http.MethodGet, nil, nil, resultEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("response body %s", string(body)))

		var result types.TallyResult
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&result)
		c.Assert(err, qt.IsNil)
		c.Assert(result.TotalVotes, qt.Equals, uint64(len(choices)))
		c.Assert(result.Candidates, qt.DeepEquals, []types.CandidateTally{
			{CandidateID: 1, Votes: 2},
			{CandidateID: 2, Votes: 2},
			{CandidateID: 3, Votes: 1},
		})
		c.Assert(result.ParticipatingTrustees, qt.DeepEquals, []int{2, 4, 5})
		c.Assert(result.CompletedAt.IsZero(), qt.IsFalse)

		// the election record reflects the published tally
		endpoint := api.EndpointWithParam(api.ElectionEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err = cli.Request(http.MethodGet, nil, nil, endpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK)
		var election types.Election
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&election)
		c.Assert(err, qt.IsNil)
		c.Assert(election.Status, qt.Equals, types.ElectionStatusTallied)

		// late trustees find the ceremony terminal
		entries := []*types.VoteEntry{fetchEntry(c, cli, electionID, 0)}
		body, code = submitPartials(c, cli, electionID, participants[1], entries)
		c.Assert(code, qt.Equals, http.StatusConflict)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrCeremonyTerminal.Code)

		// nothing was aborted along the way, so the history is empty
		historyEndpoint := api.EndpointWithParam(api.CeremonyHistoryEndpoint, api.ElectionURLParam, electionID.String())
		body, code, err = cli.Request(http.MethodGet, nil, nil, historyEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(code, qt.Equals, http.StatusOK)
		var history api.CeremonyHistory
		err = json.NewDecoder(bytes.NewReader(body)).Decode(&history)
		c.Assert(err, qt.IsNil)
		c.Assert(history.Instances, qt.HasLen, 0)
	})
}
