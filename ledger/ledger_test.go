package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tally-z-sandbox/types"
	"github.com/vocdoni/tally-z-sandbox/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func testEntry(i int) *types.VoteEntry {
	return &types.VoteEntry{
		ID:            []byte(fmt.Sprintf("vote-%04d", i)),
		EncryptedVote: util.RandomBytes(64),
		Commitment:    util.RandomBytes(32),
		ZkProof:       util.RandomBytes(128),
		Nullifier:     util.RandomBytes(32),
	}
}

func testLedger(t *testing.T) (*Ledger, db.Database) {
	mdb := metadb.NewTest(t)
	store := NewStore(mdb)
	l, err := store.Ledger([]byte("test-scope"))
	qt.Assert(t, err, qt.IsNil)
	return l, mdb
}

func TestAppendAndProve(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	const n = 20
	proofs := make([]*types.InclusionProof, n)
	for i := 0; i < n; i++ {
		position, proof, err := l.Append(testEntry(i))
		c.Assert(err, qt.IsNil)
		c.Assert(position, qt.Equals, uint64(i))
		c.Assert(VerifyProof(proof), qt.IsTrue)
		c.Assert(len(proof.Siblings), qt.Equals, types.LedgerTreeMaxLevels)
		c.Assert(len(proof.Positions), qt.Equals, types.LedgerTreeMaxLevels)
		proofs[i] = proof
	}
	c.Assert(l.VoteCount(), qt.Equals, uint64(n))

	// Proofs regenerated afterwards target the current root and all verify.
	root := l.Root()
	for i := 0; i < n; i++ {
		proof, err := l.Proof(uint64(i))
		c.Assert(err, qt.IsNil)
		c.Assert(proof.Root, qt.DeepEquals, root)
		c.Assert(VerifyProof(proof), qt.IsTrue)
	}

	// Old proofs still verify against the root they were issued for.
	for _, proof := range proofs {
		c.Assert(VerifyProof(proof), qt.IsTrue)
	}
}

func TestAppendAssignsTimestamp(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	entry := testEntry(0)
	c.Assert(entry.Timestamp.IsZero(), qt.IsTrue)
	_, _, err := l.Append(entry)
	c.Assert(err, qt.IsNil)
	stored, err := l.Entry(0)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Timestamp.IsZero(), qt.IsFalse)
}

func TestDuplicateNullifier(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	first := testEntry(0)
	_, _, err := l.Append(first)
	c.Assert(err, qt.IsNil)
	rootBefore := l.Root()

	// A different vote reusing the nullifier must be rejected without any
	// state change.
	second := testEntry(1)
	second.Nullifier = first.Nullifier
	_, _, err = l.Append(second)
	c.Assert(err, qt.ErrorIs, ErrNullifierUsed)
	c.Assert(l.VoteCount(), qt.Equals, uint64(1))
	c.Assert(l.Root(), qt.DeepEquals, rootBefore)

	used, err := l.NullifierUsed(first.Nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsTrue)
	used, err = l.NullifierUsed(util.RandomBytes(32))
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsFalse)
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	nullifier := types.HexBytes(util.RandomBytes(32))
	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.ReserveNullifier(nullifier)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			c.Assert(err, qt.ErrorIs, ErrNullifierUsed)
		}
	}
	c.Assert(winners, qt.Equals, 1)
}

func TestConcurrentAppends(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = l.Append(testEntry(i))
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		c.Assert(errs[i], qt.IsNil)
	}
	c.Assert(l.VoteCount(), qt.Equals, uint64(n))
	for i := uint64(0); i < n; i++ {
		proof, err := l.Proof(i)
		c.Assert(err, qt.IsNil)
		c.Assert(VerifyProof(proof), qt.IsTrue)
	}
}

func TestEmptyLedger(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	c.Assert(l.VoteCount(), qt.Equals, uint64(0))
	c.Assert(l.Root(), qt.DeepEquals, EmptyRoot())

	_, err := l.Proof(0)
	c.Assert(err, qt.ErrorIs, ErrLedgerEmpty)
	_, err = l.Entry(0)
	c.Assert(err, qt.ErrorIs, ErrLedgerEmpty)

	snap := l.Snapshot()
	c.Assert(snap.VoteCount, qt.Equals, uint64(0))
	c.Assert(snap.Root, qt.DeepEquals, EmptyRoot())
}

func TestInvalidPosition(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	_, _, err := l.Append(testEntry(0))
	c.Assert(err, qt.IsNil)

	_, err = l.Proof(1)
	c.Assert(err, qt.ErrorIs, ErrInvalidPosition)
	_, err = l.Proof(42)
	c.Assert(err, qt.ErrorIs, ErrInvalidPosition)
	_, err = l.Entry(7)
	c.Assert(err, qt.ErrorIs, ErrInvalidPosition)
}

func TestEntryValidation(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	entry := testEntry(0)
	entry.Nullifier = nil
	_, _, err := l.Append(entry)
	c.Assert(err, qt.ErrorIs, ErrInvalidEntry)

	entry = testEntry(1)
	entry.EncryptedVote = nil
	_, _, err = l.Append(entry)
	c.Assert(err, qt.ErrorIs, ErrInvalidEntry)

	entry = testEntry(2)
	entry.Commitment = util.RandomBytes(types.MaxVoteFieldLen + 1)
	_, _, err = l.Append(entry)
	c.Assert(err, qt.ErrorIs, ErrInvalidEntry)

	c.Assert(l.VoteCount(), qt.Equals, uint64(0))
}

func TestSnapshotAt(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	roots := []types.HexBytes{l.Root()}
	for i := 0; i < 5; i++ {
		_, _, err := l.Append(testEntry(i))
		c.Assert(err, qt.IsNil)
		roots = append(roots, l.Root())
	}
	for size := uint64(0); size <= 5; size++ {
		snap, err := l.SnapshotAt(size)
		c.Assert(err, qt.IsNil)
		c.Assert(snap.VoteCount, qt.Equals, size)
		c.Assert(snap.Root, qt.DeepEquals, roots[size])
	}
	_, err := l.SnapshotAt(6)
	c.Assert(err, qt.ErrorIs, ErrInvalidPosition)
}

func TestEntries(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	for i := 0; i < 7; i++ {
		_, _, err := l.Append(testEntry(i))
		c.Assert(err, qt.IsNil)
	}
	entries, err := l.Entries(4)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 4)
	for i, entry := range entries {
		c.Assert(string(entry.ID), qt.Equals, fmt.Sprintf("vote-%04d", i))
	}
	_, err = l.Entries(8)
	c.Assert(err, qt.ErrorIs, ErrInvalidPosition)
}

func TestReopenPersistence(t *testing.T) {
	c := qt.New(t)
	tmpDir := t.TempDir()

	mdb, err := metadb.New(db.TypePebble, tmpDir)
	c.Assert(err, qt.IsNil)
	scope := types.HexBytes("persistent-scope")

	store := NewStore(mdb)
	l, err := store.Ledger(scope)
	c.Assert(err, qt.IsNil)
	entry := testEntry(0)
	_, proof, err := l.Append(entry)
	c.Assert(err, qt.IsNil)
	root := l.Root()
	c.Assert(mdb.Close(), qt.IsNil)

	// A fresh store over the same directory sees the same ledger: count,
	// root, reserved nullifier and provability all survive.
	mdb, err = metadb.New(db.TypePebble, tmpDir)
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(mdb.Close(), qt.IsNil) }()

	store = NewStore(mdb)
	l, err = store.Ledger(scope)
	c.Assert(err, qt.IsNil)
	c.Assert(l.VoteCount(), qt.Equals, uint64(1))
	c.Assert(l.Root(), qt.DeepEquals, root)

	used, err := l.NullifierUsed(entry.Nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(used, qt.IsTrue)
	_, _, err = l.Append(&types.VoteEntry{
		ID:            []byte("vote-after-restart"),
		EncryptedVote: util.RandomBytes(64),
		Commitment:    util.RandomBytes(32),
		Nullifier:     entry.Nullifier,
	})
	c.Assert(err, qt.ErrorIs, ErrNullifierUsed)

	reProof, err := l.Proof(0)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyProof(reProof), qt.IsTrue)
	c.Assert(reProof.Root, qt.DeepEquals, proof.Root)
}

func TestScopeIsolation(t *testing.T) {
	c := qt.New(t)
	mdb := metadb.NewTest(t)
	store := NewStore(mdb)

	electionID := types.HexBytes(util.RandomBytes(32))
	q0, err := store.Ledger(types.QuestionScope(electionID, 0))
	c.Assert(err, qt.IsNil)
	q1, err := store.Ledger(types.QuestionScope(electionID, 1))
	c.Assert(err, qt.IsNil)

	// The same nullifier is independent across scopes.
	entry := testEntry(0)
	_, _, err = q0.Append(entry)
	c.Assert(err, qt.IsNil)
	twin := testEntry(1)
	twin.Nullifier = entry.Nullifier
	_, _, err = q1.Append(twin)
	c.Assert(err, qt.IsNil)
	c.Assert(q0.VoteCount(), qt.Equals, uint64(1))
	c.Assert(q1.VoteCount(), qt.Equals, uint64(1))

	// Within one scope it still blocks.
	_, _, err = q0.Append(twin)
	c.Assert(err, qt.ErrorIs, ErrNullifierUsed)
}

func TestAppendTimestampMonotonicEnough(t *testing.T) {
	c := qt.New(t)
	l, _ := testLedger(t)

	before := time.Now().Add(-time.Second)
	_, _, err := l.Append(testEntry(0))
	c.Assert(err, qt.IsNil)
	entry, err := l.Entry(0)
	c.Assert(err, qt.IsNil)
	c.Assert(entry.Timestamp.After(before), qt.IsTrue)
}
