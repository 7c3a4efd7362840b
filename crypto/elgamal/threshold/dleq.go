package threshold

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal"
)

// SizeProof is the length in bytes of a serialized Proof.
const SizeProof = 2*elgamal.SizePoint + 32

// Proof is a non-interactive Chaum-Pedersen proof of discrete log equality:
// it shows the prover knows x such that V = x*G and W = x*H, without
// revealing x. The challenge is derived with Fiat-Shamir over sha256. In a
// decryption ceremony V is the trustee's public share commitment, H is the
// ciphertext point C1 and W the partial decryption, so a valid proof ties the
// partial to the share the trustee committed to at key setup.
type Proof struct {
	A1 bn254.G1Affine // nonce commitment w*G
	A2 bn254.G1Affine // nonce commitment w*H
	Z  *big.Int       // response w + e*x mod r
}

// Prove builds a proof of discrete log equality between x*G and x*H for the
// secret x.
func Prove(x *big.Int, h *bn254.G1Affine) (*Proof, error) {
	nonce, err := rand.Int(rand.Reader, elgamal.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to generate proof nonce: %v", err)
	}
	proof := &Proof{}
	proof.A1.ScalarMultiplicationBase(nonce)
	proof.A2.ScalarMultiplication(h, nonce)

	var v, w bn254.G1Affine
	v.ScalarMultiplicationBase(x)
	w.ScalarMultiplication(h, x)

	e := challenge(h, &v, &w, &proof.A1, &proof.A2)
	proof.Z = new(big.Int).Mul(e, x)
	proof.Z.Add(proof.Z, nonce)
	proof.Z.Mod(proof.Z, elgamal.Order())
	return proof, nil
}

// Verify checks a proof against the claimed points V = x*G and W = x*H.
func Verify(proof *Proof, h, v, w *bn254.G1Affine) bool {
	if proof == nil || proof.Z == nil || h == nil || v == nil || w == nil {
		return false
	}
	e := challenge(h, v, w, &proof.A1, &proof.A2)

	// z*G == A1 + e*V
	var lhs, rhs, scaled bn254.G1Affine
	lhs.ScalarMultiplicationBase(proof.Z)
	scaled.ScalarMultiplication(v, e)
	rhs.Add(&proof.A1, &scaled)
	if !lhs.Equal(&rhs) {
		return false
	}
	// z*H == A2 + e*W
	lhs.ScalarMultiplication(h, proof.Z)
	scaled.ScalarMultiplication(w, e)
	rhs.Add(&proof.A2, &scaled)
	return lhs.Equal(&rhs)
}

// challenge derives the Fiat-Shamir challenge binding all public inputs of
// the equality statement.
func challenge(h, v, w, a1, a2 *bn254.G1Affine) *big.Int {
	hasher := sha256.New()
	hasher.Write(elgamal.Generator().Marshal())
	for _, p := range []*bn254.G1Affine{h, v, w, a1, a2} {
		hasher.Write(p.Marshal())
	}
	e := new(big.Int).SetBytes(hasher.Sum(nil))
	return e.Mod(e, elgamal.Order())
}

// Serialize returns the proof as A1 || A2 || Z, with Z left-padded to 32
// bytes.
func (p *Proof) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(p.A1.Marshal())
	buf.Write(p.A2.Marshal())
	z := p.Z.Bytes()
	buf.Write(make([]byte, 32-len(z)))
	buf.Write(z)
	return buf.Bytes()
}

// Deserialize reconstructs a Proof from its serialized form.
func (p *Proof) Deserialize(data []byte) error {
	if len(data) != SizeProof {
		return fmt.Errorf("invalid proof length: got %d bytes, expected %d bytes", len(data), SizeProof)
	}
	if _, err := p.A1.SetBytes(data[:elgamal.SizePoint]); err != nil {
		return fmt.Errorf("invalid A1 point: %w", err)
	}
	if _, err := p.A2.SetBytes(data[elgamal.SizePoint : 2*elgamal.SizePoint]); err != nil {
		return fmt.Errorf("invalid A2 point: %w", err)
	}
	p.Z = new(big.Int).SetBytes(data[2*elgamal.SizePoint:])
	return nil
}
