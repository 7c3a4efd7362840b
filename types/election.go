package types

import (
	"encoding/json"
	"time"
)

type (
	GenericMetadata    map[string]string
	MultilingualString map[string]string
)

type Choice struct {
	Title MultilingualString `json:"title" cbor:"0,keyasint,omitempty"`
	Value int                `json:"value" cbor:"1,keyasint,omitempty"`
	Meta  GenericMetadata    `json:"meta"  cbor:"2,keyasint,omitempty"`
}

type Question struct {
	Title       MultilingualString `json:"title"       cbor:"0,keyasint,omitempty"`
	Description MultilingualString `json:"description" cbor:"1,keyasint,omitempty"`
	Choices     []Choice           `json:"choices"     cbor:"2,keyasint,omitempty"`
	Meta        GenericMetadata    `json:"meta"        cbor:"3,keyasint,omitempty"`
}

type Metadata struct {
	Title       MultilingualString `json:"title"       cbor:"0,keyasint,omitempty"`
	Description MultilingualString `json:"description" cbor:"1,keyasint,omitempty"`
	Questions   []Question         `json:"questions"   cbor:"2,keyasint,omitempty"`
	Meta        GenericMetadata    `json:"meta"        cbor:"3,keyasint,omitempty"`
}

// Election lifecycle states.
const (
	ElectionStatusOpen uint8 = iota
	ElectionStatusClosed
	ElectionStatusTallied
)

// Election is the record the tally core keeps per election. Management of
// elections (creation flows, voter rolls, trustee key setup) happens
// upstream; this is the projection the ledger and ceremony layers need.
type Election struct {
	ID                    HexBytes      `json:"id,omitempty"          cbor:"0,keyasint,omitempty"`
	Status                uint8         `json:"status"                cbor:"1,keyasint"`
	Trustees              []TrusteeInfo `json:"trustees"              cbor:"2,keyasint,omitempty"`
	EncryptionKey         HexBytes      `json:"encryptionKey"         cbor:"3,keyasint,omitempty"`
	CredentialIssuerKey   HexBytes      `json:"credentialIssuerKey"   cbor:"4,keyasint,omitempty"`
	Questions             int           `json:"questions"             cbor:"5,keyasint,omitempty"`
	PerQuestionNullifiers bool          `json:"perQuestionNullifiers" cbor:"6,keyasint,omitempty"`
	StartTime             time.Time     `json:"startTime"             cbor:"7,keyasint,omitempty"`
	Duration              time.Duration `json:"duration"              cbor:"8,keyasint,omitempty"`
	MetadataURI           string        `json:"metadataURI"           cbor:"9,keyasint,omitempty"`
	Metadata              *Metadata     `json:"metadata,omitempty"    cbor:"10,keyasint,omitempty"`
}

func (e *Election) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(data)
}

// Scope returns the ledger scope for the given question of the election,
// honoring the per-question nullifier switch.
func (e *Election) Scope(question uint32) HexBytes {
	if e.PerQuestionNullifiers {
		return QuestionScope(e.ID, question)
	}
	return e.ID
}
