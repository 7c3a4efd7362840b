package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CeremonyStatus is the lifecycle state of a decryption ceremony. Transitions
// are monotonic: PENDING, IN_PROGRESS, COMBINING, COMPLETED, plus ABORTED
// reachable from any non-terminal state. COMPLETED and ABORTED are terminal.
type CeremonyStatus uint8

const (
	CeremonyPending CeremonyStatus = iota
	CeremonyInProgress
	CeremonyCombining
	CeremonyCompleted
	CeremonyAborted
)

var ceremonyStatusNames = map[CeremonyStatus]string{
	CeremonyPending:    "PENDING",
	CeremonyInProgress: "IN_PROGRESS",
	CeremonyCombining:  "COMBINING",
	CeremonyCompleted:  "COMPLETED",
	CeremonyAborted:    "ABORTED",
}

func (s CeremonyStatus) String() string {
	if name, ok := ceremonyStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// Terminal reports whether no further transitions are allowed from s.
func (s CeremonyStatus) Terminal() bool {
	return s == CeremonyCompleted || s == CeremonyAborted
}

func (s CeremonyStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *CeremonyStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range ceremonyStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown ceremony status %q", name)
}

// TrusteeInfo is one member of the ceremony roster, captured when the
// ceremony starts. PublicCommitment is the trustee's public share commitment
// used to verify partial decryption proofs.
type TrusteeInfo struct {
	ID               int      `json:"id"               cbor:"0,keyasint"`
	PublicCommitment HexBytes `json:"publicCommitment" cbor:"1,keyasint,omitempty"`
}

// PartialDecryption is one trustee's share of the decryption of one ledger
// entry, together with the proof that the share matches the trustee's public
// commitment. At most one is accepted per (trustee, entry).
type PartialDecryption struct {
	TrusteeID        int      `json:"trusteeId"        cbor:"0,keyasint"`
	EntryID          HexBytes `json:"entryId"          cbor:"1,keyasint,omitempty"`
	Value            HexBytes `json:"value"            cbor:"2,keyasint,omitempty"`
	CorrectnessProof HexBytes `json:"correctnessProof" cbor:"3,keyasint,omitempty"`
}

// Ceremony is the persisted record of a decryption ceremony. A new instance
// is created on every start; instances are kept after abort so the audit
// trail survives retries.
type Ceremony struct {
	InstanceID        uuid.UUID      `json:"instanceId"        cbor:"0,keyasint"`
	ElectionID        HexBytes       `json:"electionId"        cbor:"1,keyasint,omitempty"`
	Status            CeremonyStatus `json:"status"            cbor:"2,keyasint"`
	RequiredShares    int            `json:"requiredShares"    cbor:"3,keyasint"`
	BoundSnapshot     LedgerSnapshot `json:"boundSnapshot"     cbor:"4,keyasint,omitempty"`
	Trustees          []TrusteeInfo  `json:"trustees"          cbor:"5,keyasint,omitempty"`
	SubmittedTrustees []int          `json:"submittedTrustees" cbor:"6,keyasint,omitempty"`
	StartedAt         time.Time      `json:"startedAt"         cbor:"7,keyasint,omitempty"`
	CompletedAt       time.Time      `json:"completedAt"       cbor:"8,keyasint,omitempty"`
	Result            *TallyResult   `json:"result,omitempty"  cbor:"9,keyasint,omitempty"`
	FailureReason     string         `json:"failureReason"     cbor:"10,keyasint,omitempty"`
}

// HasSubmitted reports whether the trustee already counted a validated
// submission in this ceremony instance.
func (c *Ceremony) HasSubmitted(trusteeID int) bool {
	for _, id := range c.SubmittedTrustees {
		if id == trusteeID {
			return true
		}
	}
	return false
}

// Trustee returns the roster entry for the given trustee ID, or nil if the
// trustee is not part of the ceremony.
func (c *Ceremony) Trustee(trusteeID int) *TrusteeInfo {
	for i := range c.Trustees {
		if c.Trustees[i].ID == trusteeID {
			return &c.Trustees[i]
		}
	}
	return nil
}

// CandidateTally is the decrypted vote count for a single candidate.
type CandidateTally struct {
	CandidateID uint64 `json:"candidateId" cbor:"0,keyasint"`
	Votes       uint64 `json:"votes"       cbor:"1,keyasint"`
}

// TallyResult is the outcome of a completed ceremony. It only ever exists
// complete: a failed tally produces no result at all.
type TallyResult struct {
	Candidates            []CandidateTally `json:"candidates"            cbor:"0,keyasint,omitempty"`
	TotalVotes            uint64           `json:"totalVotes"            cbor:"1,keyasint"`
	CompletedAt           time.Time        `json:"completedAt"           cbor:"2,keyasint,omitempty"`
	ParticipatingTrustees []int            `json:"participatingTrustees" cbor:"3,keyasint,omitempty"`
}

// CeremonyState is the public view of a ceremony used by status queries.
type CeremonyState struct {
	InstanceID     uuid.UUID      `json:"instanceId"`
	ElectionID     HexBytes       `json:"electionId"`
	Status         CeremonyStatus `json:"status"`
	RequiredShares int            `json:"requiredShares"`
	ReceivedShares int            `json:"receivedShares"`
	BoundVoteCount uint64         `json:"boundVoteCount"`
	FailureReason  string         `json:"failureReason,omitempty"`
}
