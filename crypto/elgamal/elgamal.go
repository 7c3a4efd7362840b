// Package elgamal implements exponential ElGamal encryption over the BN254 G1
// group. Messages are encoded in the exponent (M = msg * G), which makes
// ciphertexts additively homomorphic; decryption recovers the message point
// and solves the bounded discrete logarithm with baby-step giant-step.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/vocdoni/tally-z-sandbox/util"
)

var generator bn254.G1Jac

func init() {
	generator.X.SetOne()
	generator.Y.SetUint64(2)
	generator.Z.SetOne()
}

// Order returns the order of the BN254 G1 group, the scalar field for all
// private keys, shares and encryption randomness.
func Order() *big.Int {
	return fr.Modulus()
}

// Generator returns the canonical G1 generator point.
func Generator() *bn254.G1Affine {
	g := new(bn254.G1Affine)
	g.FromJacobian(&generator)
	return g
}

// RandK function generates a random k value for encryption.
func RandK() (*big.Int, error) {
	kBytes := make([]byte, 20)
	_, err := rand.Read(kBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random k: %v", err)
	}
	k := new(big.Int).SetBytes(kBytes)
	return util.BigToFF(k), nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair.
func GenerateKey() (publicKey *bn254.G1Affine, privateKey *big.Int, err error) {
	d, err := rand.Int(rand.Reader, Order())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %v", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1) // avoid zero private keys
	}
	publicKey = new(bn254.G1Affine).ScalarMultiplicationBase(d)
	return publicKey, d, nil
}

// Encrypt encrypts a message using the public key provided as elliptic curve
// point. It generates a random k and returns the resulting ciphertext and the
// random k used to produce it.
func Encrypt(publicKey *bn254.G1Affine, msg *big.Int) (*Ciphertext, *big.Int, error) {
	k, err := RandK()
	if err != nil {
		return nil, nil, err
	}
	// encrypt the message using the random k generated
	z, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, err
	}
	return z, k, nil
}

// EncryptWithK encrypts a message using the public key and the random k value
// provided. It returns the ciphertext (C1, C2) = (k*G, msg*G + k*publicKey).
func EncryptWithK(publicKey *bn254.G1Affine, msg, k *big.Int) (*Ciphertext, error) {
	if publicKey == nil || !publicKey.IsOnCurve() {
		return nil, fmt.Errorf("invalid public key")
	}
	// ensure the message is within the scalar field
	m := new(big.Int).Mod(msg, Order())
	z := new(Ciphertext)
	// compute C1 = k * G
	z.C1.ScalarMultiplicationBase(k)
	// compute s = k * publicKey
	var s bn254.G1Affine
	s.ScalarMultiplication(publicKey, k)
	// encode message as point M = msg * G
	var encoded bn254.G1Affine
	encoded.ScalarMultiplicationBase(m)
	// compute C2 = M + s
	z.C2.Add(&encoded, &s)
	return z, nil
}

// Decrypt decrypts the given ciphertext using the private key. It returns the
// message point M = C2 - d*C1 and the discrete log message scalar. If no
// solution is found below maxMessage, it returns an error.
func Decrypt(privateKey *big.Int, z *Ciphertext, maxMessage uint64) (*bn254.G1Affine, *big.Int, error) {
	// compute M = C2 - d*C1
	var dc1 bn254.G1Affine
	dc1.ScalarMultiplication(&z.C1, privateKey)
	dc1.Neg(&dc1)
	m := new(bn254.G1Affine).Add(&z.C2, &dc1)

	message, err := BabyStepGiantStep(m, maxMessage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find discrete log: %v", err)
	}
	return m, message, nil
}

// BabyStepGiantStep solves M = x*G for x in [0, maxMessage] using the
// baby-step giant-step algorithm.
func BabyStepGiantStep(m *bn254.G1Affine, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	// precompute baby steps: store 0*G, 1*G, ..., (mSqrt-1)*G in a map
	babySteps := make(map[string]uint64, mSqrt)
	var babyStep bn254.G1Affine
	g := Generator()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[string(babyStep.Marshal())] = j
		babyStep.Add(&babyStep, g)
	}

	// compute c = -(mSqrt * G)
	var c bn254.G1Affine
	c.ScalarMultiplicationBase(new(big.Int).SetUint64(mSqrt))
	c.Neg(&c)

	giantStep := *m
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[string(giantStep.Marshal())]; found {
			// x = i*mSqrt + j
			return new(big.Int).SetUint64(i*mSqrt + j), nil
		}
		giantStep.Add(&giantStep, &c)
	}
	return nil, fmt.Errorf("failed to compute discrete logarithm using Baby-Step Giant-Step algorithm")
}

// CheckK checks if a given k was used to produce the ciphertext. It returns
// true if C1 == k*G, without decrypting the message.
func CheckK(z *Ciphertext, k *big.Int) bool {
	var check bn254.G1Affine
	check.ScalarMultiplicationBase(k)
	return check.Equal(&z.C1)
}
