package threshold

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal"
)

const testMaxMessage = 10_000

func TestDealSharesReconstructsSecret(t *testing.T) {
	c := qt.New(t)

	secret := big.NewInt(777)
	ids := []int{1, 2, 3, 4, 5}
	shares, err := DealShares(secret, 3, ids)
	c.Assert(err, qt.IsNil)
	c.Assert(shares, qt.HasLen, 5)

	// any quorum of shares interpolates back to the secret at zero
	for _, quorum := range [][]int{{1, 2, 3}, {2, 4, 5}, {1, 3, 5}} {
		coeffs, err := LagrangeCoefficients(quorum, elgamal.Order())
		c.Assert(err, qt.IsNil)
		sum := big.NewInt(0)
		for _, id := range quorum {
			term := new(big.Int).Mul(coeffs[id], shares[id])
			sum.Add(sum, term)
			sum.Mod(sum, elgamal.Order())
		}
		c.Assert(sum.Cmp(secret), qt.Equals, 0)
	}
}

func TestDealSharesValidation(t *testing.T) {
	c := qt.New(t)

	_, err := DealShares(big.NewInt(1), 4, []int{1, 2, 3})
	c.Assert(err, qt.IsNotNil)
	_, err = DealShares(big.NewInt(1), 0, []int{1, 2, 3})
	c.Assert(err, qt.IsNotNil)
	_, err = DealShares(big.NewInt(1), 2, []int{1, 2, 2})
	c.Assert(err, qt.IsNotNil)
	_, err = DealShares(big.NewInt(1), 2, []int{0, 1, 2})
	c.Assert(err, qt.IsNotNil)
}

func TestThresholdDecryption(t *testing.T) {
	c := qt.New(t)

	ids := []int{1, 2, 3, 4, 5}
	publicKey, shares, err := GenerateKey(3, ids)
	c.Assert(err, qt.IsNil)

	msg := big.NewInt(1234)
	ct, _, err := elgamal.Encrypt(publicKey, msg)
	c.Assert(err, qt.IsNil)

	partials := make(map[int]*bn254.G1Affine)
	for id, share := range shares {
		partials[id] = NewParticipant(id, share).PartialDecrypt(&ct.C1)
	}

	c.Run("any quorum recovers the message", func(c *qt.C) {
		for _, quorum := range [][]int{{1, 2, 3}, {3, 4, 5}, {1, 3, 5}, {2, 3, 4, 5}} {
			got, err := CombinePartialDecryptions(&ct.C2, partials, quorum, testMaxMessage)
			c.Assert(err, qt.IsNil)
			c.Assert(got.Cmp(msg), qt.Equals, 0)
		}
	})

	c.Run("below quorum fails", func(c *qt.C) {
		got, err := CombinePartialDecryptions(&ct.C2, partials, []int{1, 2}, testMaxMessage)
		if err == nil {
			c.Assert(got.Cmp(msg), qt.Not(qt.Equals), 0)
		}
	})

	c.Run("missing partial fails", func(c *qt.C) {
		_, err := CombinePartialDecryptions(&ct.C2, partials, []int{1, 2, 42}, testMaxMessage)
		c.Assert(err, qt.IsNotNil)
	})

	c.Run("empty participant set fails", func(c *qt.C) {
		_, err := CombinePartialDecryptions(&ct.C2, partials, nil, testMaxMessage)
		c.Assert(err, qt.IsNotNil)
	})
}

func TestCorruptedPartialBreaksCombination(t *testing.T) {
	c := qt.New(t)

	ids := []int{1, 2, 3}
	publicKey, shares, err := GenerateKey(3, ids)
	c.Assert(err, qt.IsNil)

	msg := big.NewInt(55)
	ct, _, err := elgamal.Encrypt(publicKey, msg)
	c.Assert(err, qt.IsNil)

	partials := make(map[int]*bn254.G1Affine)
	for id, share := range shares {
		partials[id] = NewParticipant(id, share).PartialDecrypt(&ct.C1)
	}
	// trustee 2 lies about its partial decryption
	partials[2] = new(bn254.G1Affine).ScalarMultiplicationBase(big.NewInt(99))

	got, err := CombinePartialDecryptions(&ct.C2, partials, ids, testMaxMessage)
	if err == nil {
		c.Assert(got.Cmp(msg), qt.Not(qt.Equals), 0)
	}
}
