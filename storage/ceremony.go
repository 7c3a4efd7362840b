package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocdoni/tally-z-sandbox/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Ceremony retrieves the current ceremony record of an election.
// It returns ErrNotFound if the election never started one.
func (s *Storage) Ceremony(electionID types.HexBytes) (*types.Ceremony, error) {
	cer := &types.Ceremony{}
	if err := s.getArtifact(ceremonyPrefix, electionID, cer); err != nil {
		return nil, err
	}
	return cer, nil
}

// SetCeremony stores a ceremony record as the current one for its election,
// replacing any previous version of the same instance.
func (s *Storage) SetCeremony(cer *types.Ceremony) error {
	if cer == nil {
		return fmt.Errorf("nil ceremony")
	}
	if len(cer.ElectionID) == 0 {
		return fmt.Errorf("ceremony without election ID")
	}
	return s.setArtifact(ceremonyPrefix, cer.ElectionID, cer)
}

// ArchiveCeremony moves the record to the archive space, keyed by election
// and instance, so a fresh instance can take the current slot while the old
// one stays queryable.
func (s *Storage) ArchiveCeremony(cer *types.Ceremony) error {
	if cer == nil {
		return fmt.Errorf("nil ceremony")
	}
	key := append(hashKey(cer.ElectionID), cer.InstanceID[:]...)
	return s.setArtifact(ceremonyArchivePrefix, key, cer)
}

// CeremonyHistory returns the archived ceremony instances of an election, in
// storage order.
func (s *Storage) CeremonyHistory(electionID types.HexBytes) ([]*types.Ceremony, error) {
	var history []*types.Ceremony
	pdb := prefixeddb.NewPrefixedDatabase(s.db, ceremonyArchivePrefix)
	err := pdb.Iterate(hashKey(electionID), func(_, v []byte) bool {
		cer := &types.Ceremony{}
		if err := decodeArtifact(v, cer); err != nil {
			return true
		}
		history = append(history, cer)
		return true
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ListCeremonies returns the election IDs which currently have a ceremony
// record.
func (s *Storage) ListCeremonies() ([]types.HexBytes, error) {
	keys, err := s.listArtifactKeys(ceremonyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]types.HexBytes, len(keys))
	for i, k := range keys {
		ids[i] = k
	}
	return ids, nil
}

// partialKey builds the unique key of a partial decryption inside a ceremony
// instance: instance id, hashed entry id and trustee id.
func partialKey(instance uuid.UUID, entryID types.HexBytes, trusteeID int) []byte {
	key := make([]byte, 0, 16+maxKeySize+4)
	key = append(key, instance[:]...)
	key = append(key, hashKey(entryID)...)
	trustee := make([]byte, 4)
	binary.BigEndian.PutUint32(trustee, uint32(trusteeID))
	return append(key, trustee...)
}

// AddPartials stores a batch of validated partial decryptions for a ceremony
// instance in a single transaction. Records are write-once per
// (instance, entry, trustee); re-adding the same partial is a no-op
// overwrite with identical content.
func (s *Storage) AddPartials(instance uuid.UUID, partials []*types.PartialDecryption) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), partialsPrefix)
	for _, p := range partials {
		if p == nil || len(p.EntryID) == 0 {
			wTx.Discard()
			return fmt.Errorf("partial decryption without entry ID")
		}
		data, err := encodeArtifact(p)
		if err != nil {
			wTx.Discard()
			return err
		}
		if err := wTx.Set(partialKey(instance, p.EntryID, p.TrusteeID), data); err != nil {
			wTx.Discard()
			return err
		}
	}
	return wTx.Commit()
}

// PartialsByEntry returns all stored partial decryptions of a ceremony
// instance, grouped by entry ID.
func (s *Storage) PartialsByEntry(instance uuid.UUID) (map[string][]*types.PartialDecryption, error) {
	byEntry := make(map[string][]*types.PartialDecryption)
	pdb := prefixeddb.NewPrefixedDatabase(s.db, partialsPrefix)
	err := pdb.Iterate(instance[:], func(_, v []byte) bool {
		p := &types.PartialDecryption{}
		if err := decodeArtifact(v, p); err != nil {
			return true
		}
		byEntry[string(p.EntryID)] = append(byEntry[string(p.EntryID)], p)
		return true
	})
	if err != nil {
		return nil, err
	}
	return byEntry, nil
}
