package ledger

import "fmt"

var (
	// ErrInvalidEntry is returned when a vote entry fails validation.
	ErrInvalidEntry = fmt.Errorf("invalid vote entry")
	// ErrNullifierUsed is returned when the entry nullifier was already
	// reserved within the ledger scope.
	ErrNullifierUsed = fmt.Errorf("nullifier already used")
	// ErrInvalidPosition is returned when a position is outside the range
	// of appended entries.
	ErrInvalidPosition = fmt.Errorf("position out of range")
	// ErrLedgerEmpty is returned when an operation needs at least one
	// appended entry.
	ErrLedgerEmpty = fmt.Errorf("ledger is empty")
)
