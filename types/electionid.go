package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ElectionID is the type to identify an election. It is composed of:
// - ChainID (4 bytes)
// - Address (20 bytes)
// - Nonce (8 bytes)
type ElectionID struct {
	Address common.Address
	Nonce   uint64
	ChainID uint32
}

// Marshal encodes ElectionID to bytes:
func (e *ElectionID) Marshal() []byte {
	chainID := make([]byte, 4)
	binary.BigEndian.PutUint32(chainID, e.ChainID)

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, e.Nonce)

	var id bytes.Buffer
	id.Write(chainID[:4])
	id.Write(e.Address.Bytes()[:20])
	id.Write(nonce[:8])
	return id.Bytes()
}

// Unmarshal decodes bytes to ElectionID.
func (e *ElectionID) Unmarshal(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("invalid ElectionID length: %d", len(data))
	}
	e.ChainID = binary.BigEndian.Uint32(data[:4])
	e.Address = common.BytesToAddress(data[4:24])
	e.Nonce = binary.BigEndian.Uint64(data[24:32])
	return nil
}

// MarshalBinary implements the BinaryMarshaler interface
func (e *ElectionID) MarshalBinary() (data []byte, err error) {
	return e.Marshal(), nil
}

// UnmarshalBinary implements the BinaryMarshaler interface
func (e *ElectionID) UnmarshalBinary(data []byte) error {
	return e.Unmarshal(data)
}

// String returns a human readable representation of the election ID
func (e *ElectionID) String() string {
	return hex.EncodeToString(e.Marshal())
}

// QuestionScope derives the ledger scope for one question of a multi-question
// election: the election ID followed by the big-endian question index. For
// single-question elections the scope is the bare election ID.
func QuestionScope(electionID HexBytes, question uint32) HexBytes {
	scope := make([]byte, len(electionID)+4)
	copy(scope, electionID)
	binary.BigEndian.PutUint32(scope[len(electionID):], question)
	return scope
}
