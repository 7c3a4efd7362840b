package api

import "strings"

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ElectionsEndpoint is the endpoint for registering and listing election
	// records. In a full deployment registration happens upstream; this
	// fixture keeps the node self-contained.
	ElectionsEndpoint = "/elections"
	// ElectionURLParam is the URL parameter carrying the election ID
	ElectionURLParam = "electionId"
	// ElectionEndpoint is the endpoint to get a single election record
	ElectionEndpoint = "/elections/{" + ElectionURLParam + "}"
	// VotesEndpoint is the endpoint for submitting a vote to an election
	VotesEndpoint = ElectionEndpoint + "/votes"
	// PositionURLParam is the URL parameter carrying a ledger position
	PositionURLParam = "position"
	// VoteEndpoint is the endpoint to fetch one ledger entry by position
	VoteEndpoint = VotesEndpoint + "/{" + PositionURLParam + "}"
	// VoteProofEndpoint is the endpoint to fetch a fresh inclusion proof
	VoteProofEndpoint = VoteEndpoint + "/proof"
	// SnapshotEndpoint is the endpoint to fetch the current ledger snapshot
	SnapshotEndpoint = ElectionEndpoint + "/snapshot"
	// VerifyProofEndpoint is the endpoint for stateless proof verification
	VerifyProofEndpoint = "/proofs/verify"
	// CeremonyEndpoint is the endpoint to start and query the decryption
	// ceremony of an election
	CeremonyEndpoint = ElectionEndpoint + "/ceremony"
	// CeremonyPartialsEndpoint is the endpoint for trustee partial
	// decryption submissions
	CeremonyPartialsEndpoint = CeremonyEndpoint + "/partials"
	// CeremonyResultEndpoint is the endpoint to fetch the final tally
	CeremonyResultEndpoint = CeremonyEndpoint + "/result"
	// CeremonyHistoryEndpoint is the endpoint to list archived ceremony
	// instances of an election
	CeremonyHistoryEndpoint = CeremonyEndpoint + "/history"
	// MetricsEndpoint exposes prometheus metrics
	MetricsEndpoint = "/metrics"
)

// EndpointWithParam replaces the named URL parameter placeholder of an
// endpoint template with a concrete value.
func EndpointWithParam(endpoint, param, value string) string {
	return strings.Replace(endpoint, "{"+param+"}", value, 1)
}
