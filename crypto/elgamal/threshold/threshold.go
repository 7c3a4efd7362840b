// Package threshold implements t-of-n threshold decryption for exponential
// ElGamal over BN254 G1. An election key is split into Shamir shares held by
// trustees; each trustee produces partial decryptions (share * C1) with a
// Chaum-Pedersen proof of correctness, and any quorum of t valid partials can
// be combined with Lagrange interpolation to recover the message, without the
// full private key ever being assembled.
package threshold

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal"
)

// Participant holds one trustee's private share of an election key.
type Participant struct {
	ID    int
	Share *big.Int
}

// NewParticipant creates a Participant from a trustee ID and its dealt share.
func NewParticipant(id int, share *big.Int) *Participant {
	return &Participant{ID: id, Share: share}
}

// Commitment returns the participant's public share commitment (share * G),
// published at key setup so partial decryptions can be verified later.
func (p *Participant) Commitment() *bn254.G1Affine {
	return new(bn254.G1Affine).ScalarMultiplicationBase(p.Share)
}

// PartialDecrypt computes the partial decryption share * C1.
func (p *Participant) PartialDecrypt(c1 *bn254.G1Affine) *bn254.G1Affine {
	var si bn254.G1Affine
	si.ScalarMultiplication(c1, p.Share)
	return &si
}

// GenerateKey creates a fresh election key pair and deals private shares of it
// to the given trustee IDs, requiring threshold shares to reconstruct. The
// dealer secret is discarded; only the public key and the shares survive.
func GenerateKey(threshold int, ids []int) (*bn254.G1Affine, map[int]*big.Int, error) {
	publicKey, secret, err := elgamal.GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	shares, err := DealShares(secret, threshold, ids)
	if err != nil {
		return nil, nil, err
	}
	return publicKey, shares, nil
}

// DealShares evaluates a random degree threshold-1 polynomial with constant
// term secret at each trustee ID. Trustee IDs must be positive and distinct,
// since they double as the polynomial evaluation points.
func DealShares(secret *big.Int, threshold int, ids []int) (map[int]*big.Int, error) {
	if threshold < 1 || threshold > len(ids) {
		return nil, fmt.Errorf("invalid threshold %d for %d trustees", threshold, len(ids))
	}
	order := elgamal.Order()
	coeffs := make([]*big.Int, threshold)
	coeffs[0] = new(big.Int).Mod(secret, order)
	for i := 1; i < threshold; i++ {
		coeff, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, fmt.Errorf("failed to generate polynomial coefficient: %v", err)
		}
		coeffs[i] = coeff
	}
	shares := make(map[int]*big.Int, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("trustee ids must be positive, got %d", id)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate trustee id %d", id)
		}
		seen[id] = true
		shares[id] = evaluatePolynomial(coeffs, big.NewInt(int64(id)), order)
	}
	return shares, nil
}

// evaluatePolynomial evaluates the secret polynomial at a given x.
func evaluatePolynomial(coeffs []*big.Int, x, order *big.Int) *big.Int {
	result := big.NewInt(0)
	xPower := big.NewInt(1)
	for _, coeff := range coeffs {
		term := new(big.Int).Mul(coeff, xPower)
		term.Mod(term, order)
		result.Add(result, term)
		result.Mod(result, order)

		xPower.Mul(xPower, x)
		xPower.Mod(xPower, order)
	}
	return result
}

// LagrangeCoefficients computes the Lagrange basis coefficients at zero for
// the given participant IDs.
func LagrangeCoefficients(participants []int, mod *big.Int) (map[int]*big.Int, error) {
	coeffs := make(map[int]*big.Int, len(participants))
	for _, i := range participants {
		numerator := big.NewInt(1)
		denominator := big.NewInt(1)
		for _, j := range participants {
			if i == j {
				continue
			}
			// numerator *= -j mod mod
			tempNum := big.NewInt(int64(-j))
			tempNum.Mod(tempNum, mod)
			numerator.Mul(numerator, tempNum)
			numerator.Mod(numerator, mod)

			// denominator *= (i - j) mod mod
			tempDen := big.NewInt(int64(i - j))
			tempDen.Mod(tempDen, mod)
			denominator.Mul(denominator, tempDen)
			denominator.Mod(denominator, mod)
		}
		denominatorInv := new(big.Int).ModInverse(denominator, mod)
		if denominatorInv == nil {
			return nil, fmt.Errorf("modular inverse does not exist for denominator %s modulo %s", denominator.String(), mod.String())
		}
		coeff := new(big.Int).Mul(numerator, denominatorInv)
		coeff.Mod(coeff, mod)
		coeffs[i] = coeff
	}
	return coeffs, nil
}

// CombinePartialDecryptions combines partial decryptions from the given
// participants to recover the message scalar. It needs exactly the quorum of
// IDs the Lagrange interpolation is computed over; combining a set smaller
// than the dealing threshold yields garbage, which surfaces as a discrete log
// failure for bounded messages.
func CombinePartialDecryptions(c2 *bn254.G1Affine, partials map[int]*bn254.G1Affine, participants []int, maxMessage uint64) (*big.Int, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("no participants to combine")
	}
	lagrangeCoeffs, err := LagrangeCoefficients(participants, elgamal.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to compute Lagrange coefficients: %w", err)
	}

	// sum up the partial decryptions weighted by Lagrange coefficients
	s := new(bn254.G1Affine)
	for _, id := range participants {
		pd, ok := partials[id]
		if !ok {
			return nil, fmt.Errorf("missing partial decryption for participant %d", id)
		}
		var term bn254.G1Affine
		term.ScalarMultiplication(pd, lagrangeCoeffs[id])
		s.Add(s, &term)
	}
	// compute M = C2 - s
	s.Neg(s)
	m := new(bn254.G1Affine).Add(c2, s)

	messageScalar, err := elgamal.BabyStepGiantStep(m, maxMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message: %v", err)
	}
	return messageScalar, nil
}
