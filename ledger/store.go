package ledger

import (
	"crypto/sha256"
	"sync"

	"github.com/vocdoni/tally-z-sandbox/types"
	"go.vocdoni.io/dvote/db"
)

const ledgerDBprefix = "lg_"

// Store hands out the ledger of each scope, keeping open instances cached so
// every caller shares the same per-scope serialization point.
type Store struct {
	mu     sync.RWMutex
	db     db.Database
	loaded map[string]*Ledger
}

// NewStore creates a ledger store over the given database. Ledgers live in
// their own prefixed keyspaces inside it.
func NewStore(database db.Database) *Store {
	return &Store{
		db:     database,
		loaded: make(map[string]*Ledger),
	}
}

// Ledger returns the ledger of the scope, opening it on first use. Opening
// an untouched scope yields an empty ledger; no separate creation step
// exists.
func (s *Store) Ledger(scope types.HexBytes) (*Ledger, error) {
	s.mu.RLock()
	if l, exists := s.loaded[string(scope)]; exists {
		s.mu.RUnlock()
		return l, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, exists := s.loaded[string(scope)]; exists {
		return l, nil
	}
	l, err := openLedger(s.db, scope)
	if err != nil {
		return nil, err
	}
	s.loaded[string(scope)] = l
	return l, nil
}

// scopePrefix derives the keyspace prefix of a scope. Hashing keeps prefixes
// fixed-length and disjoint regardless of the scope encoding.
func scopePrefix(scope types.HexBytes) []byte {
	hash := sha256.Sum256(scope)
	return append([]byte(ledgerDBprefix), hash[:16]...)
}
