// Package ethereum provides ECDSA signing keys and address derivation
// following the Ethereum signed message conventions.
package ethereum

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/tally-z-sandbox/types"
	"github.com/vocdoni/tally-z-sandbox/util"
)

// SignatureLength is the size in bytes of an ECDSA signature.
const SignatureLength = ethcrypto.SignatureLength

// SignKeys represents an ECDSA pair of keys for signing.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty ECDSA key pair.
func NewSignKeys() *SignKeys {
	return &SignKeys{Public: ecdsa.PublicKey{}, Private: ecdsa.PrivateKey{}}
}

// Generate generates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private hex key, with or without 0x prefix.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings.
func (k *SignKeys) HexString() (string, string) {
	pubHexComp := fmt.Sprintf("%x", k.PublicKey())
	privHex := fmt.Sprintf("%x", ethcrypto.FromECDSA(&k.Private))
	return pubHexComp, privHex
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() types.HexBytes {
	return ethcrypto.CompressPubkey(&k.Public)
}

// PrivateKey returns the raw private key bytes.
func (k *SignKeys) PrivateKey() types.HexBytes {
	return ethcrypto.FromECDSA(&k.Private)
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the Ethereum address as a checksummed string.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs a message applying the Ethereum signed message prefix.
// The returned signature carries the recovery id in its last byte.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(Hash(message), &k.Private)
}

// Hash computes the keccak256 hash of a message applying the Ethereum signed
// message prefix.
func Hash(message []byte) []byte {
	return HashRaw(fmt.Appendf(nil, "\x19Ethereum Signed Message:\n%d%s", len(message), message))
}

// HashRaw hashes data with keccak256.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// AddrFromPublicKey derives the Ethereum address from a compressed public
// key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	pubkey, err := ethcrypto.DecompressPubkey(pub)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot decompress public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubkey), nil
}

// AddrFromSignature recovers the address that signed a prefixed message.
// Recovery ids 27/28 are accepted alongside 0/1.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] > 1 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(Hash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
