// Package ledger implements the append-only vote ledger: one positional
// merkle tree per scope with the nullifier registry embedded in the same
// keyspace, so reserving a credential and appending its vote commit in a
// single transaction.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes inside a ledger scope.
	nodePrefix      = []byte("n/")
	entryPrefix     = []byte("e/")
	rootPrefix      = []byte("r/")
	nullifierPrefix = []byte("u/")
	metaPrefix      = []byte("m/")

	countKey = []byte("count")
)

// Ledger is the append-only vote store of one scope. All mutation goes
// through the instance mutex; concurrent appends serialize per scope and
// readers only ever observe committed state.
type Ledger struct {
	scope types.HexBytes
	db    db.Database

	mu    sync.Mutex
	count uint64
}

// openLedger loads or initializes the ledger of a scope over its prefixed
// keyspace.
func openLedger(base db.Database, scope types.HexBytes) (*Ledger, error) {
	if len(scope) == 0 {
		return nil, fmt.Errorf("empty ledger scope")
	}
	pdb := prefixeddb.NewPrefixedDatabase(base, scopePrefix(scope))
	l := &Ledger{
		scope: append(types.HexBytes{}, scope...),
		db:    pdb,
	}
	meta := prefixeddb.NewPrefixedReader(pdb, metaPrefix)
	switch data, err := meta.Get(countKey); {
	case err == nil:
		if len(data) != 8 {
			return nil, fmt.Errorf("corrupted ledger count for scope %x", scope)
		}
		l.count = binary.BigEndian.Uint64(data)
	case errors.Is(err, db.ErrKeyNotFound):
		l.count = 0
	default:
		return nil, fmt.Errorf("cannot load ledger count: %w", err)
	}
	return l, nil
}

// Scope returns the scope the ledger was opened for.
func (l *Ledger) Scope() types.HexBytes {
	return l.scope
}

// Append validates the entry, reserves its nullifier and adds it to the
// tree, all within one transaction. On success it returns the assigned
// position and an inclusion proof against the new root. On any failure
// nothing is persisted: a duplicate nullifier returns ErrNullifierUsed with
// the vote count unchanged.
func (l *Ledger) Append(entry *types.VoteEntry) (uint64, *types.InclusionProof, error) {
	if entry == nil {
		return 0, nil, ErrInvalidEntry
	}
	if err := entry.Validate(); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	position := l.count
	wTx := l.db.WriteTx()

	// Reserve the nullifier first: the reservation and the append share
	// the transaction, so either both land or neither does.
	if err := reserveNullifier(wTx, l.scope, entry.Nullifier, entry.Timestamp); err != nil {
		wTx.Discard()
		return 0, nil, err
	}

	entryData, err := cbor.Marshal(entry)
	if err != nil {
		wTx.Discard()
		return 0, nil, fmt.Errorf("cannot encode entry: %w", err)
	}
	eTx := prefixeddb.NewPrefixedWriteTx(wTx, entryPrefix)
	if err := eTx.Set(u64key(position), entryData); err != nil {
		wTx.Discard()
		return 0, nil, err
	}

	root, err := insertLeaf(wTx, position, entry.LeafHash())
	if err != nil {
		wTx.Discard()
		return 0, nil, err
	}

	rTx := prefixeddb.NewPrefixedWriteTx(wTx, rootPrefix)
	if err := rTx.Set(u64key(position+1), root); err != nil {
		wTx.Discard()
		return 0, nil, err
	}
	mTx := prefixeddb.NewPrefixedWriteTx(wTx, metaPrefix)
	if err := mTx.Set(countKey, u64key(position+1)); err != nil {
		wTx.Discard()
		return 0, nil, err
	}
	if err := wTx.Commit(); err != nil {
		wTx.Discard()
		return 0, nil, fmt.Errorf("cannot commit append: %w", err)
	}
	l.count = position + 1

	proof, err := buildProof(l.db, position)
	if err != nil {
		return 0, nil, fmt.Errorf("append committed but proof failed: %w", err)
	}
	log.Debugw("vote appended",
		"scope", fmt.Sprintf("%x", l.scope),
		"position", position,
		"root", fmt.Sprintf("%x", root))
	return position, proof, nil
}

// Proof generates an inclusion proof for the entry at the given position
// against the current root.
func (l *Ledger) Proof(position uint64) (*types.InclusionProof, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return nil, ErrLedgerEmpty
	}
	if position >= l.count {
		return nil, fmt.Errorf("%w: %d >= %d", ErrInvalidPosition, position, l.count)
	}
	return buildProof(l.db, position)
}

// Root returns the current merkle root. An empty ledger has a well-defined
// root of the all-zero-subtree.
func (l *Ledger) Root() types.HexBytes {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rootLocked()
}

func (l *Ledger) rootLocked() types.HexBytes {
	if l.count == 0 {
		return EmptyRoot()
	}
	root, err := treeNode(prefixeddb.NewPrefixedReader(l.db, nodePrefix), types.LedgerTreeMaxLevels, 0)
	if err != nil {
		log.Errorw(err, "cannot read ledger root")
		return nil
	}
	return root
}

// VoteCount returns the number of appended entries.
func (l *Ledger) VoteCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Snapshot captures the current root and vote count as a publishable anchor.
func (l *Ledger) Snapshot() types.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.LedgerSnapshot{
		Root:      l.rootLocked(),
		VoteCount: l.count,
		Timestamp: time.Now(),
	}
}

// SnapshotAt reconstructs the anchor the ledger had when it held voteCount
// entries. Roots of all past sizes are retained on append.
func (l *Ledger) SnapshotAt(voteCount uint64) (types.LedgerSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if voteCount > l.count {
		return types.LedgerSnapshot{}, fmt.Errorf("%w: %d > %d", ErrInvalidPosition, voteCount, l.count)
	}
	if voteCount == 0 {
		return types.LedgerSnapshot{Root: EmptyRoot(), VoteCount: 0, Timestamp: time.Now()}, nil
	}
	roots := prefixeddb.NewPrefixedReader(l.db, rootPrefix)
	root, err := roots.Get(u64key(voteCount))
	if err != nil {
		return types.LedgerSnapshot{}, fmt.Errorf("cannot read root at %d: %w", voteCount, err)
	}
	return types.LedgerSnapshot{Root: root, VoteCount: voteCount, Timestamp: time.Now()}, nil
}

// Entry returns the vote entry stored at the given position.
func (l *Ledger) Entry(position uint64) (*types.VoteEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return nil, ErrLedgerEmpty
	}
	if position >= l.count {
		return nil, fmt.Errorf("%w: %d >= %d", ErrInvalidPosition, position, l.count)
	}
	return l.entryLocked(position)
}

func (l *Ledger) entryLocked(position uint64) (*types.VoteEntry, error) {
	data, err := prefixeddb.NewPrefixedReader(l.db, entryPrefix).Get(u64key(position))
	if err != nil {
		return nil, fmt.Errorf("cannot read entry %d: %w", position, err)
	}
	entry := &types.VoteEntry{}
	if err := cbor.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("cannot decode entry %d: %w", position, err)
	}
	return entry, nil
}

// Entries returns the first upTo entries in append order. Used by the tally
// to walk exactly the entries bound by a snapshot.
func (l *Ledger) Entries(upTo uint64) ([]*types.VoteEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if upTo > l.count {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidPosition, upTo, l.count)
	}
	entries := make([]*types.VoteEntry, 0, upTo)
	for position := uint64(0); position < upTo; position++ {
		entry, err := l.entryLocked(position)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// NullifierUsed reports whether the nullifier is reserved in this scope.
// The answer reflects committed state only; it never gates a reservation.
func (l *Ledger) NullifierUsed(nullifier types.HexBytes) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(l.db, nullifierPrefix).Get(nullifier)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ReserveNullifier reserves a nullifier without appending an entry. Returns
// ErrNullifierUsed if it was reserved before; the reservation is durable
// once the call returns.
func (l *Ledger) ReserveNullifier(nullifier types.HexBytes) error {
	if len(nullifier) == 0 {
		return fmt.Errorf("%w: empty nullifier", ErrInvalidEntry)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	wTx := l.db.WriteTx()
	if err := reserveNullifier(wTx, l.scope, nullifier, time.Now()); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// reserveNullifier performs the reserve-or-fail check inside the given
// transaction: a hit on the existing record fails, a miss writes it.
func reserveNullifier(wTx db.WriteTx, scope, nullifier types.HexBytes, at time.Time) error {
	nTx := prefixeddb.NewPrefixedWriteTx(wTx, nullifierPrefix)
	_, err := nTx.Get(nullifier)
	if err == nil {
		return fmt.Errorf("%w: %x", ErrNullifierUsed, nullifier)
	}
	if !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("cannot check nullifier: %w", err)
	}
	record, err := cbor.Marshal(&types.NullifierRecord{
		Scope:      scope,
		Nullifier:  nullifier,
		ReservedAt: at,
	})
	if err != nil {
		return fmt.Errorf("cannot encode nullifier record: %w", err)
	}
	return nTx.Set(nullifier, record)
}

func u64key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}
