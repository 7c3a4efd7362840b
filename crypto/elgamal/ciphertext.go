package elgamal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/tally-z-sandbox/types"
)

// sizes in bytes needed to serialize a Ciphertext
const (
	SizePoint      = bn254.SizeOfG1AffineUncompressed
	SizeCiphertext = 2 * SizePoint
)

// Ciphertext represents an ElGamal encrypted message with homomorphic
// properties. It encapsulates the two curve points of a ciphertext.
type Ciphertext struct {
	C1 bn254.G1Affine
	C2 bn254.G1Affine
}

// NewCiphertext creates a new zero-valued Ciphertext.
func NewCiphertext() *Ciphertext {
	return &Ciphertext{}
}

// Encrypt encrypts a message under the given public key and stores the result
// in z, which is also returned. The randomness k can be provided or nil to
// generate a new one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey *bn254.G1Affine, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		if k, err = RandK(); err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	*z = *c
	return z, nil
}

// Add adds two Ciphertext and stores the result in z, which is also returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.Add(&x.C1, &y.C1)
	z.C2.Add(&x.C2, &y.C2)
	return z
}

// Equal reports whether z and x encrypt to the same pair of points.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	return z.C1.Equal(&x.C1) && z.C2.Equal(&x.C2)
}

// Serialize returns a slice of 2*64 bytes, representing C1 and C2 in
// uncompressed affine form.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(z.C1.Marshal())
	buf.Write(z.C2.Marshal())
	return buf.Bytes()
}

// Deserialize reconstructs a Ciphertext from a slice of bytes. The input must
// be of len 2*64 bytes (otherwise it returns an error), representing C1 and
// C2 in uncompressed affine form. Both points are checked to be on the curve
// and inside the correct subgroup.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes", len(data), SizeCiphertext)
	}
	if _, err := z.C1.SetBytes(data[:SizePoint]); err != nil {
		return fmt.Errorf("invalid C1 point: %w", err)
	}
	if _, err := z.C2.SetBytes(data[SizePoint:]); err != nil {
		return fmt.Errorf("invalid C2 point: %w", err)
	}
	return nil
}

// MarshalJSON encodes the ciphertext as {"c1": hex, "c2": hex}.
func (z *Ciphertext) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]types.HexBytes{
		"c1": z.C1.Marshal(),
		"c2": z.C2.Marshal(),
	})
}

// UnmarshalJSON populates the ciphertext from {"c1": hex, "c2": hex}.
func (z *Ciphertext) UnmarshalJSON(data []byte) error {
	var points map[string]types.HexBytes
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	if _, err := z.C1.SetBytes(points["c1"]); err != nil {
		return fmt.Errorf("invalid C1 point: %w", err)
	}
	if _, err := z.C2.SetBytes(points["c2"]); err != nil {
		return fmt.Errorf("invalid C2 point: %w", err)
	}
	return nil
}

// MarshalCBOR encodes the ciphertext as its binary serialization.
func (z *Ciphertext) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(z.Serialize())
}

// UnmarshalCBOR populates the ciphertext from its binary serialization.
func (z *Ciphertext) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	return z.Deserialize(raw)
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %x, C2: %x}", z.C1.Marshal(), z.C2.Marshal())
}
