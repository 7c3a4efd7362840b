package types

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// leafDomainTag is prepended to leaf preimages before hashing.
	leafDomainTag = 0x00
	// NodeDomainTag is prepended to interior node preimages before hashing.
	NodeDomainTag = 0x01
)

// SiblingSide tells on which side of the parent a proof sibling sits. The tag
// refers to the sibling, not to the node being proven.
type SiblingSide string

const (
	// SiblingLeft means the sibling is the left child of the parent.
	SiblingLeft SiblingSide = "left"
	// SiblingRight means the sibling is the right child of the parent.
	SiblingRight SiblingSide = "right"
)

// Valid reports whether s is one of the two defined sides.
func (s SiblingSide) Valid() bool {
	return s == SiblingLeft || s == SiblingRight
}

// VoteEntry is an accepted vote as recorded in the ledger. Entries are
// immutable once appended.
type VoteEntry struct {
	ID            HexBytes  `json:"id"            cbor:"0,keyasint,omitempty"`
	EncryptedVote HexBytes  `json:"encryptedVote" cbor:"1,keyasint,omitempty"`
	Commitment    HexBytes  `json:"commitment"    cbor:"2,keyasint,omitempty"`
	ZkProof       HexBytes  `json:"zkProof"       cbor:"3,keyasint,omitempty"`
	Nullifier     HexBytes  `json:"nullifier"     cbor:"4,keyasint,omitempty"`
	Timestamp     time.Time `json:"timestamp"     cbor:"5,keyasint,omitempty"`
}

// Validate checks the entry fields are present and within size limits. It does
// not verify any cryptographic material.
func (v *VoteEntry) Validate() error {
	for name, field := range map[string]HexBytes{
		"id":            v.ID,
		"encryptedVote": v.EncryptedVote,
		"commitment":    v.Commitment,
		"nullifier":     v.Nullifier,
	} {
		if len(field) == 0 {
			return fmt.Errorf("missing %s", name)
		}
		if len(field) > MaxVoteFieldLen {
			return fmt.Errorf("%s exceeds %d bytes", name, MaxVoteFieldLen)
		}
	}
	if len(v.ZkProof) > MaxVoteFieldLen {
		return fmt.Errorf("zkProof exceeds %d bytes", MaxVoteFieldLen)
	}
	return nil
}

// LeafHash returns the ledger leaf for the entry: a domain-tagged sha256 over
// the length-prefixed ID, encrypted vote, commitment and nullifier. The proof
// blob and timestamp stay outside the hash so they can be pruned without
// breaking inclusion proofs.
func (v *VoteEntry) LeafHash() HexBytes {
	h := sha256.New()
	h.Write([]byte{leafDomainTag})
	var lenBuf [binary.MaxVarintLen64]byte
	for _, field := range [][]byte{v.ID, v.EncryptedVote, v.Commitment, v.Nullifier} {
		n := binary.PutUvarint(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:n])
		h.Write(field)
	}
	return h.Sum(nil)
}

// InclusionProof proves a leaf is part of the tree anchored at Root. Siblings
// are ordered bottom-up and Positions[i] tells the side Siblings[i] occupies.
// A proof is only meaningful against the root it carries.
type InclusionProof struct {
	Leaf      HexBytes      `json:"leaf"      cbor:"0,keyasint,omitempty"`
	Siblings  []HexBytes    `json:"siblings"  cbor:"1,keyasint,omitempty"`
	Positions []SiblingSide `json:"positions" cbor:"2,keyasint,omitempty"`
	Root      HexBytes      `json:"root"      cbor:"3,keyasint,omitempty"`
}

// LedgerSnapshot anchors a ledger state: the root covering the first
// VoteCount entries at the time it was taken.
type LedgerSnapshot struct {
	Root      HexBytes  `json:"root"      cbor:"0,keyasint,omitempty"`
	VoteCount uint64    `json:"voteCount" cbor:"1,keyasint"`
	Timestamp time.Time `json:"timestamp" cbor:"2,keyasint,omitempty"`
}

// NullifierRecord marks a credential as spent inside one scope. Records are
// write-once.
type NullifierRecord struct {
	Scope      HexBytes  `json:"scope"      cbor:"0,keyasint,omitempty"`
	Nullifier  HexBytes  `json:"nullifier"  cbor:"1,keyasint,omitempty"`
	ReservedAt time.Time `json:"reservedAt" cbor:"2,keyasint,omitempty"`
}
