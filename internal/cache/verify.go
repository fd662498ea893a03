package cache

import (
	"crypto/ed25519"
	"fmt"

	"dxengine/internal/dxc"
)

// Verify checks an entry's ed25519 signature against its BLAKE3 content
// digest using the stored public key.
//
// An unsigned entry verifies false without an error; signing is optional and
// only used for remote or shared caches where authenticity matters.
func (m *Manager) Verify(entry *dxc.Entry) (bool, error) {
	if len(entry.Signature) == 0 || len(entry.PublicKey) == 0 {
		return false, nil
	}
	if len(entry.PublicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key is %d bytes, want %d",
			ErrSignatureInvalid, len(entry.PublicKey), ed25519.PublicKeySize)
	}
	if len(entry.Signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: signature is %d bytes, want %d",
			ErrSignatureInvalid, len(entry.Signature), ed25519.SignatureSize)
	}

	digest := entry.Digest()
	if !ed25519.Verify(ed25519.PublicKey(entry.PublicKey), digest[:], entry.Signature) {
		return false, ErrSignatureInvalid
	}
	return true, nil
}
