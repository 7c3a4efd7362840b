package ethereum

import (
	"github.com/vocdoni/tally-z-sandbox/types"
)

// VerifyCredentialSignature reports whether credential is a valid issuer
// signature over the voter's nullifier. The issuer public key is expected in
// compressed form; any malformed input fails verification.
func VerifyCredentialSignature(credential, issuerPubKey, nullifier []byte) bool {
	recovered, err := AddrFromSignature(nullifier, credential)
	if err != nil {
		return false
	}
	expected, err := AddrFromPublicKey(issuerPubKey)
	if err != nil {
		return false
	}
	return recovered == expected
}

// CredentialVerifier implements the vote credential capability with plain
// ECDSA issuer signatures: a credential is the election issuer's signature
// over the voter's one-time nullifier.
type CredentialVerifier struct{}

// VerifyCredentialSignature implements the capability interface.
func (CredentialVerifier) VerifyCredentialSignature(credential, publicKey, nullifier types.HexBytes) bool {
	return VerifyCredentialSignature(credential, publicKey, nullifier)
}
