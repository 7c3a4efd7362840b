// Package storage keeps the durable artifacts of the tally node in a prefixed
// key-value store. The following prefixes are used:
//   - 'p/' for election records
//   - 'c/' for the current decryption ceremony of an election
//   - 'ch/' for archived (aborted) ceremony instances
//   - 'd/' for partial decryptions, grouped per ceremony instance
//
// The vote ledgers live in their own prefixed space managed by the ledger
// package; this package never touches it.
package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	electionPrefix        = []byte("p/")
	ceremonyPrefix        = []byte("c/")
	ceremonyArchivePrefix = []byte("ch/")
	partialsPrefix        = []byte("d/")
)

const (
	// maxKeySize is the maximum size of hashed keys in bytes. Artifact keys
	// derived from variable-length identifiers are truncated sha256 hashes.
	maxKeySize = 12
)

// Storage is a handle over the artifact store. One instance wraps one
// database; callers own the database lifecycle and inject it here.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance over the given database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

// Database exposes the wrapped database so sibling subsystems (the vote
// ledgers) can share the same storage backend.
func (s *Storage) Database() db.Database {
	return s.db
}

// encodeArtifact serializes an artifact with deterministic CBOR.
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// hashKey derives a fixed-size store key from variable-length data.
func hashKey(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:maxKeySize]
}

// setArtifact stores the encoded artifact under prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact reads and decodes the artifact stored under prefix/key into
// out. Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// listArtifactKeys returns all keys stored under the prefix.
func (s *Storage) listArtifactKeys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := s.db.Iterate(prefix, func(k, _ []byte) bool {
		key := make([]byte, len(k))
		copy(key, k)
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
