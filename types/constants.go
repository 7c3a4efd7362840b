package types

const (
	// LedgerTreeMaxLevels is the number of levels in the vote ledger merkle tree.
	LedgerTreeMaxLevels = 32
	// MaxVoteFieldLen is the maximum length in bytes of any single vote entry
	// field (encrypted vote, commitment, nullifier or proof).
	MaxVoteFieldLen = 4096
	// NullifierLen is the expected length of a nullifier in bytes.
	NullifierLen = 32
)
