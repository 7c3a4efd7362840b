package ceremony

import "fmt"

var (
	// ErrElectionNotFound is returned when the election of a ceremony
	// operation does not exist.
	ErrElectionNotFound = fmt.Errorf("election not found")
	// ErrCeremonyNotFound is returned when an election has no ceremony.
	ErrCeremonyNotFound = fmt.Errorf("ceremony not found")
	// ErrCeremonyExists is returned by Start when a ceremony is already
	// running or completed for the election.
	ErrCeremonyExists = fmt.Errorf("ceremony already exists")
	// ErrCeremonyTerminal is returned when an operation targets a ceremony
	// that already reached COMPLETED or ABORTED.
	ErrCeremonyTerminal = fmt.Errorf("ceremony reached a terminal state")
	// ErrInvalidShares is returned when requiredShares is outside
	// [1, len(trustees)].
	ErrInvalidShares = fmt.Errorf("invalid required shares")
	// ErrUnknownTrustee is returned when the submitting trustee is not part
	// of the ceremony roster.
	ErrUnknownTrustee = fmt.Errorf("trustee not in ceremony roster")
	// ErrDuplicateTrustee is returned when a trustee submits twice to the
	// same ceremony instance.
	ErrDuplicateTrustee = fmt.Errorf("trustee already submitted")
	// ErrNoValidPartials is returned when nothing in a submission passed
	// verification; the trustee is not counted and may retry.
	ErrNoValidPartials = fmt.Errorf("no valid partial decryptions in submission")
	// ErrNoResult is returned when asking for the result of a ceremony that
	// has not completed.
	ErrNoResult = fmt.Errorf("tally result not available")
	// ErrTallyFailed is the opaque combination failure: callers learn the
	// tally failed, never which entries or counts were involved.
	ErrTallyFailed = fmt.Errorf("tally failed")
)
