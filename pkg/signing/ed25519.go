package signing

import (
	"crypto"
	"crypto/ed25519"
	"fmt"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

// ed25519Algorithm signs with Ed25519 (RFC 8032). Signatures are
// deterministic and always 64 bytes.
type ed25519Algorithm struct{}

func (a *ed25519Algorithm) ID() string {
	return AlgorithmEd25519
}

func (a *ed25519Algorithm) Sign(message []byte, key crypto.Signer) ([]byte, error) {
	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("key must be ed25519.PrivateKey for ed25519, got %T", key))
	}
	if len(edKey) != ed25519.PrivateKeySize {
		return nil, perrors.New(perrors.CodeKeyError, fmt.Sprintf("ed25519 private key must be %d bytes, got %d bytes", ed25519.PrivateKeySize, len(edKey)))
	}
	return ed25519.Sign(edKey, message), nil
}

func (a *ed25519Algorithm) Verify(message, signature []byte, key crypto.PublicKey) error {
	edKey, ok := key.(ed25519.PublicKey)
	if !ok {
		return perrors.New(perrors.CodeKeyError, fmt.Sprintf("key must be ed25519.PublicKey for ed25519, got %T", key))
	}
	if len(edKey) != ed25519.PublicKeySize {
		return perrors.New(perrors.CodeKeyError, fmt.Sprintf("ed25519 public key must be %d bytes, got %d bytes", ed25519.PublicKeySize, len(edKey)))
	}
	if len(signature) != ed25519.SignatureSize {
		return perrors.New(perrors.CodeSignatureFormatError, fmt.Sprintf("ed25519 signature must be %d bytes, got %d bytes", ed25519.SignatureSize, len(signature)))
	}
	if !ed25519.Verify(edKey, message, signature) {
		return fmt.Errorf("ed25519 signature verification failed")
	}
	return nil
}
