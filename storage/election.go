package storage

import (
	"fmt"

	"github.com/vocdoni/tally-z-sandbox/types"
)

// Election retrieves an election record from the storage.
// It returns ErrNotFound if the election does not exist.
func (s *Storage) Election(electionID types.HexBytes) (*types.Election, error) {
	e := &types.Election{}
	if err := s.getArtifact(electionPrefix, electionID, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SetElection stores an election record into the storage, replacing any
// previous version.
func (s *Storage) SetElection(data *types.Election) error {
	if data == nil {
		return fmt.Errorf("nil election data")
	}
	if len(data.ID) == 0 {
		return fmt.Errorf("election without ID")
	}
	return s.setArtifact(electionPrefix, data.ID, data)
}

// ListElections returns the IDs of all stored elections.
func (s *Storage) ListElections() ([]types.HexBytes, error) {
	keys, err := s.listArtifactKeys(electionPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]types.HexBytes, len(keys))
	for i, k := range keys {
		ids[i] = k
	}
	return ids, nil
}
